package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/burner/core"
	"github.com/layer-3/burner/service"
	"github.com/sirupsen/logrus"
)

// AccountView is a burner account as the page sees it. Credentials stay on the server.
type AccountView struct {
	Address   core.Felt `json:"address"`
	Short     string    `json:"short"`
	DeployTx  core.Felt `json:"deploy_tx"`
	CreatedAt time.Time `json:"created_at"`
	Selected  bool      `json:"selected"`
}

// StateView is the JSON form of the page state
type StateView struct {
	State       service.ShellState `json:"state"`
	Error       string             `json:"error,omitempty"`
	Accounts    []AccountView      `json:"accounts"`
	Active      *AccountView       `json:"active,omitempty"`
	Generation  core.Generation    `json:"generation"`
	CanGenerate bool               `json:"can_generate"`
}

// Handlers contains HTTP handlers for the page and its API
type Handlers struct {
	shell   *service.ShellService
	burners *service.BurnerService
	vrf     *service.VRFService
	logger  logrus.FieldLogger
}

// NewHandlers creates new handlers
func NewHandlers(shell *service.ShellService, burners *service.BurnerService, vrf *service.VRFService, logger logrus.FieldLogger) *Handlers {
	return &Handlers{
		shell:   shell,
		burners: burners,
		vrf:     vrf,
		logger:  logger,
	}
}

// Page renders the UI shell. Loading the page bootstraps the session, or retries a failed bootstrap.
func (h *Handlers) Page(c *gin.Context) {
	h.shell.StartBootstrap(c.Request.Context(), h.session(c))

	view, err := h.state(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.HTML(http.StatusOK, "index.html", view)
}

// State returns the page state
func (h *Handlers) State(c *gin.Context) {
	view, err := h.state(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ListAccounts returns the session's burner accounts
func (h *Handlers) ListAccounts(c *gin.Context) {
	set, err := h.burners.Snapshot(c.Request.Context(), h.session(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accountViews(set)})
}

// CreateAccount deploys a new burner account
func (h *Handlers) CreateAccount(c *gin.Context) {
	acc, err := h.shell.CreateAccount(c.Request.Context(), h.session(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, toAccountView(*acc, false))
}

// SelectAccount makes an account active
func (h *Handlers) SelectAccount(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	address, err := core.ParseFelt(req.Address)
	if err != nil {
		h.fail(c, core.Wrap(core.ErrInvalidAddress, err))
		return
	}

	if err := h.burners.Select(c.Request.Context(), h.session(c), address); err != nil {
		h.fail(c, err)
		return
	}

	h.State(c)
}

// ClearAccounts deselects and removes every burner account of the session
func (h *Handlers) ClearAccounts(c *gin.Context) {
	if err := h.burners.Clear(c.Request.Context(), h.session(c)); err != nil {
		h.fail(c, err)
		return
	}

	h.State(c)
}

// Generate requests a random number with the active burner account
func (h *Handlers) Generate(c *gin.Context) {
	result, err := h.vrf.Generate(c.Request.Context(), h.session(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// session returns the request's session id and marks the session as in use
func (h *Handlers) session(c *gin.Context) string {
	id := sessionID(c)
	h.shell.Touch(id)
	return id
}

func (h *Handlers) state(c *gin.Context) (*StateView, error) {
	view, err := h.shell.View(c.Request.Context(), h.session(c))
	if err != nil {
		return nil, err
	}

	out := &StateView{
		State:      view.State,
		Error:      view.Error,
		Accounts:   make([]AccountView, 0, len(view.Accounts)),
		Generation: view.Generation,
	}
	for _, acc := range view.Accounts {
		selected := view.Active != nil && acc.Address.Equal(view.Active.Address)
		av := toAccountView(acc, selected)
		out.Accounts = append(out.Accounts, av)
		if selected {
			out.Active = &av
		}
	}
	out.CanGenerate = view.State == service.ShellReady && !view.Generation.Phase.InFlight()

	return out, nil
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status, msg := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Warn("request failed")
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}

// errorResponse maps an error kind to a status code and the message shown to the user
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrGenerationInFlight):
		return http.StatusConflict, err.Error()
	case errors.Is(err, core.ErrNoActiveAccount):
		return http.StatusPreconditionFailed, err.Error()
	case errors.Is(err, core.ErrInvalidAddress):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrInvalidSession):
		return http.StatusUnauthorized, "Invalid session"
	case errors.Is(err, core.ErrDeployment),
		errors.Is(err, core.ErrSubmission),
		errors.Is(err, core.ErrConfirmation),
		errors.Is(err, core.ErrDerivation),
		errors.Is(err, core.ErrInitialization):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, core.ErrStoreOperationFailed):
		return http.StatusServiceUnavailable, "Account storage is unavailable"
	}
	return http.StatusInternalServerError, "Internal error"
}

func accountViews(set *core.AccountSet) []AccountView {
	active, hasActive := set.Active()
	out := make([]AccountView, 0, len(set.Accounts))
	for _, acc := range set.List() {
		out = append(out, toAccountView(acc, hasActive && acc.Address.Equal(active.Address)))
	}
	return out
}

func toAccountView(acc core.BurnerAccount, selected bool) AccountView {
	return AccountView{
		Address:   acc.Address,
		Short:     acc.Address.Short(),
		DeployTx:  acc.DeployTx,
		CreatedAt: acc.CreatedAt,
		Selected:  selected,
	}
}
