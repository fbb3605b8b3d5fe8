package federation

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"blogauth/internal/modules/auth"
	"blogauth/internal/modules/federation/provider"
	"blogauth/internal/pkg/apperr"
	"blogauth/internal/pkg/response"
	"blogauth/internal/pkg/token"

	"github.com/gin-gonic/gin"
)

// Handler drives the browser-facing OAuth flow. The callback never surfaces
// a raw error status: the user is mid-redirect, so every failure becomes a
// redirect to the web app's error page with a code in the query.
type Handler struct {
	linker     *Service
	state      *StateService
	providers  *provider.Registry
	tokens     *auth.Service
	webBaseURL string
}

func NewHandler(
	linker *Service,
	state *StateService,
	providers *provider.Registry,
	tokens *auth.Service,
	webBaseURL string,
) *Handler {
	return &Handler{
		linker:     linker,
		state:      state,
		providers:  providers,
		tokens:     tokens,
		webBaseURL: webBaseURL,
	}
}

// RegisterPublicRoutes mounts the redirect endpoints. optionalAuth fills in
// user_id when a bearer token is present, which turns authorize into a link
// flow instead of a login flow.
func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup, optionalAuth gin.HandlerFunc) {
	oauthGroup := v1.Group("/oauth")
	{
		oauthGroup.GET("/:provider/authorize", optionalAuth, h.Authorize)
		oauthGroup.GET("/:provider/callback", h.Callback)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.DELETE("/oauth/:provider", h.Unlink)
}

func (h *Handler) Authorize(c *gin.Context) {
	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		response.Error(c, http.StatusNotFound, "UNKNOWN_PROVIDER", "Unknown OAuth provider")
		return
	}

	deviceID := strings.TrimSpace(c.Query("device_id"))
	if deviceID == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "device_id is required")
		return
	}

	payload := token.StatePayload{
		DeviceID: deviceID,
		Redirect: safeRedirect(c.Query("redirect")),
	}
	if userID := c.GetInt64("user_id"); userID != 0 {
		payload.UserID = &userID
	}

	state, err := h.state.Sign(payload)
	if err != nil {
		response.FromError(c, err)
		return
	}

	c.Redirect(http.StatusFound, p.AuthCodeURL(state))
}

func (h *Handler) Callback(c *gin.Context) {
	state, err := h.state.Verify(c.Query("state"))
	if err != nil {
		h.errorRedirect(c, "invalid_state")
		return
	}

	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		h.errorRedirect(c, "unknown_provider")
		return
	}

	code := c.Query("code")
	if code == "" {
		h.errorRedirect(c, "missing_code")
		return
	}

	ident, err := p.ExchangeCode(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, provider.ErrUnavailable) {
			h.errorRedirect(c, "provider_unavailable")
			return
		}
		h.errorRedirect(c, "internal")
		return
	}

	if state.UserID != nil {
		h.finishLink(c, state, ident)
		return
	}
	h.finishLogin(c, state, ident)
}

// finishLink runs the link flow for an authenticated caller.
func (h *Handler) finishLink(c *gin.Context, state *token.StatePayload, ident *provider.ExternalIdentity) {
	ctx := c.Request.Context()

	if err := h.linker.Link(ctx, *state.UserID, ident.Provider, ident.SubjectID); err != nil {
		switch apperr.KindOf(err) {
		case apperr.Conflict:
			h.errorRedirect(c, "identity_already_linked")
		case apperr.NotFound:
			h.errorRedirect(c, "account_not_found")
		default:
			h.errorRedirect(c, "internal")
		}
		return
	}

	user, err := h.tokens.GetCurrentUser(ctx, *state.UserID)
	if err != nil {
		h.errorRedirect(c, "internal")
		return
	}
	h.successRedirect(c, state, user.ID, user.IsAdmin)
}

// finishLogin logs in by binding, registering a fresh account when the
// external identity is unknown.
func (h *Handler) finishLogin(c *gin.Context, state *token.StatePayload, ident *provider.ExternalIdentity) {
	ctx := c.Request.Context()

	user, err := h.linker.LoginOrNull(ctx, ident.Provider, ident.SubjectID)
	if err != nil {
		h.errorRedirect(c, "internal")
		return
	}
	if user == nil {
		user, err = h.linker.RegisterExternal(ctx, ident)
		if apperr.Is(err, apperr.Conflict) {
			// a concurrent callback registered the identity first; log in
			// against the account it created
			user, err = h.linker.LoginOrNull(ctx, ident.Provider, ident.SubjectID)
			if err == nil && user == nil {
				err = apperr.New(apperr.Internal, "binding vanished after registration conflict")
			}
		}
		if err != nil {
			h.errorRedirect(c, "internal")
			return
		}
	}
	h.successRedirect(c, state, user.ID, user.IsAdmin)
}

func (h *Handler) Unlink(c *gin.Context) {
	if err := h.linker.Unlink(c.Request.Context(), c.GetInt64("user_id"), c.Param("provider")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unlinked": true})
}

func (h *Handler) successRedirect(c *gin.Context, state *token.StatePayload, userID int64, isAdmin bool) {
	pair, err := h.tokens.Issue(c.Request.Context(), userID, isAdmin, state.DeviceID, false)
	if err != nil {
		h.errorRedirect(c, "internal")
		return
	}

	fragment := url.Values{}
	fragment.Set("access_token", pair.AccessToken)
	fragment.Set("refresh_token", pair.RefreshToken)
	c.Redirect(http.StatusFound, h.webBaseURL+safeRedirect(state.Redirect)+"#"+fragment.Encode())
}

func (h *Handler) errorRedirect(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, h.webBaseURL+"/oauth/error?code="+url.QueryEscape(code))
}

// safeRedirect keeps the post-login target a local path so the state token
// cannot turn the callback into an open redirect.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}
