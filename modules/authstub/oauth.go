package authstub

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/fintrack/pkg/authapi"
	"github.com/dmitrymomot/fintrack/pkg/logger"
	"github.com/dmitrymomot/fintrack/pkg/sanitizer"
	"github.com/dmitrymomot/fintrack/pkg/validator"
)

// handleOAuth signs in with a provider profile. It trusts the profile as
// sent; a real backend verifies the identity token with the provider.
// Accounts are linked by provider id first, then by email, and are created
// verified otherwise.
func (b *Backend) handleOAuth(w http.ResponseWriter, r *http.Request) {
	provider, err := authapi.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		b.writeError(w, r, http.StatusNotFound, "Unsupported provider")
		return
	}

	var req authapi.OAuthProfile
	if !b.decode(w, r, &req) {
		return
	}
	req.Email = sanitizer.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name, _, _ = strings.Cut(req.Email, "@")
	}
	if err := validator.Apply(
		validator.Required("oauthId", req.OAuthID),
		validator.ValidEmail("email", req.Email),
	); err != nil {
		b.writeInvalid(w, r, err)
		return
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	u, ok := b.store.userByOAuth(string(provider), req.OAuthID)
	if !ok {
		u, ok = b.store.userByEmail(req.Email)
	}
	if !ok {
		u = b.store.insert(&user{Name: req.Name, Email: req.Email})
		b.log.InfoContext(r.Context(), "user created from provider profile",
			logger.UserID(u.ID), logger.Provider(string(provider)))
	}
	if u.OAuth == nil {
		u.OAuth = make(map[string]string)
	}
	u.OAuth[string(provider)] = req.OAuthID
	u.Verified = true
	if u.Name == "" {
		u.Name = req.Name
	}
	if req.ProfilePicture != "" {
		u.Picture = req.ProfilePicture
	}

	b.writeJSON(w, r, http.StatusOK, b.issueSession(u))
}
