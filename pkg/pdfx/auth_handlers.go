package pdfx

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/abconlinecourses/pdfx-xblock/pkg/client"
	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
)

// The auth layer is a stand-in for the course platform's own session
// handling: in an LMS deployment the platform fronts this API and supplies
// the user and role. Tokens map to user IDs only; role and staff status are
// re-read from the store on every request so a role change takes effect
// immediately.

var errUnauthorized = errors.New("missing or invalid session token")

// generateToken creates a 32-byte random token encoded as hex, suitable for
// Bearer authentication.
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// bearerToken extracts the token from the Authorization header, with or
// without the "Bearer " prefix.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	return strings.TrimPrefix(auth, "Bearer ")
}

// resolveUser maps the request's session token to its user account.
func (a *App) resolveUser(r *http.Request) (*models.User, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, errUnauthorized
	}

	a.sessionMu.RLock()
	userID, ok := a.sessions[token]
	a.sessionMu.RUnlock()
	if !ok {
		return nil, errUnauthorized
	}

	user, err := a.store.GetUser(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errUnauthorized
	}
	return user, nil
}

// resolveIdentity is the one place request identity comes from. Handlers
// never derive the acting user from payload content; a user ID inside a
// payload is data to validate against this identity, not a credential.
func (a *App) resolveIdentity(r *http.Request) (models.Identity, error) {
	user, err := a.resolveUser(r)
	if err != nil {
		return models.Identity{}, err
	}
	return models.Identity{
		UserID:  user.ID,
		Role:    user.Role,
		IsStaff: user.IsStaff(),
	}, nil
}

// requireIdentity resolves the caller's identity, writing the error
// response itself when the request is unauthenticated.
func (a *App) requireIdentity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	ident, err := a.resolveIdentity(r)
	if errors.Is(err, errUnauthorized) {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return models.Identity{}, false
	}
	if err != nil {
		a.respondStoreError(w, err)
		return models.Identity{}, false
	}
	return ident, true
}

// requireStaff is requireIdentity plus a staff-role check.
func (a *App) requireStaff(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	ident, ok := a.requireIdentity(w, r)
	if !ok {
		return models.Identity{}, false
	}
	if !ident.IsStaff {
		respondError(w, http.StatusForbidden, "staff role required")
		return models.Identity{}, false
	}
	return ident, true
}

// handleSignUp registers a new account and signs it in immediately.
func (a *App) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req client.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Email == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "email and name are required")
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}
	if !role.Valid() {
		respondError(w, http.StatusBadRequest, "invalid role")
		return
	}

	user := &models.User{
		ID:        models.NewUserID(),
		Email:     req.Email,
		Name:      req.Name,
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := a.store.CreateUser(r.Context(), user); err != nil {
		a.respondStoreError(w, err)
		return
	}

	token, err := generateToken()
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	a.sessionMu.Lock()
	a.sessions[token] = user.ID
	a.sessionMu.Unlock()

	respondJSON(w, http.StatusOK, client.AuthResponse{Token: token, User: user})
}

// handleSignIn authenticates an existing user.
func (a *App) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req client.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	user, err := a.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		a.respondStoreError(w, err)
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// Password verification belongs to the fronting platform; any password
	// is accepted here.

	token, err := generateToken()
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	a.sessionMu.Lock()
	a.sessions[token] = user.ID
	a.sessionMu.Unlock()

	respondJSON(w, http.StatusOK, client.AuthResponse{Token: token, User: user})
}

// handleSignOut ends the caller's session.
func (a *App) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		a.sessionMu.Lock()
		delete(a.sessions, token)
		a.sessionMu.Unlock()
	}

	respondJSON(w, http.StatusOK, map[string]string{"result": "success"})
}

// handleGetCurrentUser returns the account behind the caller's session.
func (a *App) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.resolveUser(r)
	if errors.Is(err, errUnauthorized) {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleRefreshToken rotates the caller's session token.
func (a *App) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	user, err := a.resolveUser(r)
	if errors.Is(err, errUnauthorized) {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	newToken, err := generateToken()
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	a.sessionMu.Lock()
	delete(a.sessions, bearerToken(r))
	a.sessions[newToken] = user.ID
	a.sessionMu.Unlock()

	respondJSON(w, http.StatusOK, client.AuthResponse{Token: newToken, User: user})
}
