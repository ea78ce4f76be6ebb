// Package logger builds *slog.Logger instances for the fintrack binaries and
// keeps attribute naming consistent across packages.
//
// New applies functional options and, when context extractors are given,
// wraps the handler so values stored in a context.Context (the request id of
// an outgoing auth call, say) are attached to every record logged with it.
//
//	log := logger.New(
//	    logger.WithEnvironment(environment.Development, "fintrack"),
//	    logger.WithOutput(os.Stderr),
//	    logger.WithContextExtractors(requestid.LogExtractor),
//	)
//	log.DebugContext(ctx, "transition",
//	    logger.Component("authflow"),
//	    logger.Transition("idle", "submitting"),
//	)
//
// Helpers such as Error return an empty slog.Attr for nil input, so
// log.Warn("resend failed", logger.Error(err)) needs no nil check.
//
// Credentials, one-time codes and tokens must never be passed to a logger.
package logger
