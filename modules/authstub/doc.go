// Package authstub is an in-memory development backend that speaks the
// fintrack auth HTTP contract. It is meant for local runs of the terminal
// client and for end-to-end tests; nothing survives a restart.
//
// Passwords are bcrypt hashed, emailed codes are 6 digits and are handed to
// an optional hook instead of being sent, and second factors use TOTP with
// numeric backup codes.
//
//	stub := authstub.New(authstub.WithCodeHook(func(kind authstub.CodeKind, email, code string) {
//		log.Printf("%s code for %s: %s", kind, email, code)
//	}))
//	http.ListenAndServe(":8080", stub.Router())
package authstub
