package httpgin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/kirinyoku/tabgo/internal/domain"
	"github.com/kirinyoku/tabgo/internal/metrics"
	redisx "github.com/kirinyoku/tabgo/internal/redis"
	"github.com/kirinyoku/tabgo/internal/service/ledger"
)

type CheckService interface {
	EnsureForTables(ctx context.Context, staff domain.Staff, tableIDs []string) (*domain.Check, bool, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.CheckDetail, error)
	Update(ctx context.Context, staff domain.Staff, id uuid.UUID, patch domain.CheckPatch) (*domain.Check, error)
}

type LedgerService interface {
	AddLine(ctx context.Context, checkID uuid.UUID, in domain.NewLine) (*ledger.LineResult, error)
	UpdateLine(ctx context.Context, staff domain.Staff, checkID uuid.UUID, patch domain.LinePatch) (*ledger.LineResult, error)
	ClearLines(ctx context.Context, checkID uuid.UUID, expectedRevision *int64) (*domain.Check, error)
}

type TableService interface {
	Board(ctx context.Context) ([]domain.Table, error)
	SetStatus(ctx context.Context, id string, status domain.TableStatus) (*domain.Table, error)
}

type MenuService interface {
	Get(ctx context.Context, id string) (*domain.MenuItem, error)
}

type AdminService interface {
	UpsertTables(ctx context.Context, tables []domain.Table) error
	UpsertMenuItems(ctx context.Context, items []domain.MenuItem) error
	TrustDevices(ctx context.Context, deviceIDs []string) error
}

type IdempotencyStore interface {
	AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	SaveResult(ctx context.Context, key string, jsonPayload string) error
	GetResult(ctx context.Context, key string) (string, bool, error)
	Release(ctx context.Context, key string) error
}

type ChangeSubscriber interface {
	Subscribe(ctx context.Context, ready func(), handler func(ctx context.Context, ev domain.CheckChanged)) error
}

// Deps wires the router. Devices, Limiter, Idem, Feed, Metrics and Gatherer
// are optional.
type Deps struct {
	Checks   CheckService
	Ledger   LedgerService
	Tables   TableService
	Menu     MenuService
	Admin    AdminService
	Tokens   TokenParser
	Devices  DeviceChecker
	Limiter  RateLimiter
	Idem     IdempotencyStore
	Feed     ChangeSubscriber
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

func NewRouter(
	d Deps,
	logger *zap.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	registerValidators()

	r := gin.New()

	r.Use(
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		MetricsMiddleware(d.Metrics),
		CORS(),
	)
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/", StaffAuth(d.Tokens))

	// reads
	api.GET("/checks/:id", handleGetCheck(d))
	api.GET("/checks/:id/events", handleCheckEvents(d, logger))
	api.GET("/tables", handleListTables(d))
	api.GET("/menu/:id", handleGetMenuItem(d))

	// mutations come from registered terminals only
	mut := api.Group("/", DeviceGate(d.Devices), RateLimit(d.Limiter))
	{
		mut.POST("/checks", handleEnsureCheck(d))
		mut.PATCH("/checks/:id", handleUpdateCheck(d))
		mut.POST("/checks/:id/lines", handleAddLine(d))
		mut.PATCH("/checks/:id/lines", handleUpdateLine(d))
		mut.DELETE("/checks/:id/lines", handleClearLines(d))
		mut.PUT("/tables/:id/status", handleSetTableStatus(d))
	}

	adm := api.Group("/admin", RequireRole(domain.RoleAdmin))
	{
		adm.POST("/tables", handleUpsertTables(d))
		adm.POST("/menu-items", handleUpsertMenuItems(d))
		adm.POST("/devices", handleTrustDevices(d))
	}

	return r
}

// @Summary  Find or open the check for a table set
// @Tags     checks
// @Security StaffBearer
// @Param    X-Device-ID  header  string  true  "Terminal id"
// @Param    req  body  EnsureCheckRequest  true  "payload"
// @Success  201  {object}  domain.Check  "created"
// @Success  200  {object}  domain.Check  "already open"
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "table belongs to another open check"
// @Router   /checks [post]
func handleEnsureCheck(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EnsureCheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		staff, _ := staffFrom(c)

		check, created, err := d.Checks.EnsureForTables(c.Request.Context(), staff, req.TableIDs)
		if err != nil {
			respondErr(c, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}

		setRevision(c, check.Revision)
		c.JSON(status, check)
	}
}

// @Summary  Get a check with its lines and per-seat totals
// @Tags     checks
// @Security StaffBearer
// @Param    id  path  string  true  "Check ID (uuid)"
// @Success  200  {object}  domain.CheckDetail
// @Failure  404  {object}  ErrorResponse
// @Router   /checks/{id} [get]
func handleGetCheck(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		detail, err := d.Checks.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		setRevision(c, detail.Revision)
		writeJSONWithCache(c, http.StatusOK, detail, "no-cache", false)
	}
}

// @Summary  Update check fields
// @Tags     checks
// @Security StaffBearer
// @Param    id   path  string  true  "Check ID (uuid)"
// @Param    req  body  UpdateCheckRequest  true  "payload"
// @Success  200  {object}  domain.Check
// @Failure  400  {object}  ErrorResponse
// @Failure  403  {object}  ErrorResponse  "voiding needs a manager"
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "revision conflict / check closed"
// @Router   /checks/{id} [patch]
func handleUpdateCheck(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req UpdateCheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		staff, _ := staffFrom(c)

		check, err := d.Checks.Update(c.Request.Context(), staff, id, req.toPatch())
		if err != nil {
			respondErr(c, err)
			return
		}

		setRevision(c, check.Revision)
		c.JSON(http.StatusOK, check)
	}
}

// @Summary  Add a line (idempotent with Idempotency-Key)
// @Tags     lines
// @Security StaffBearer
// @Param    id   path  string  true  "Check ID (uuid)"
// @Param    Idempotency-Key  header  string  false  "client generated key"
// @Param    req  body  AddLineRequest  true  "payload"
// @Success  201  {object}  LineResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "revision conflict / check closed / key in progress"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /checks/{id}/lines [post]
func handleAddLine(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req AddLineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if d.Idem != nil && idemKey != "" {
			idemStorageKey = redisx.KeyIdemLine(id.String(), idemKey)

			if replayLine(c, d.Idem, idemStorageKey, idemKey) {
				return
			}

			locked, err := d.Idem.AcquireLock(ctx, idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if replayLine(c, d.Idem, idemStorageKey, idemKey) {
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress", Code: "idempotency_in_progress"})
				return
			}
		}

		res, err := d.Ledger.AddLine(ctx, id, req.toNewLine())
		if err != nil {
			if idemStorageKey != "" {
				_ = d.Idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := LineResponse{Line: res.Line, Check: res.Check}

		if idemStorageKey != "" {
			b, _ := json.Marshal(resp)
			_ = d.Idem.SaveResult(ctx, idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		setRevision(c, res.Check.Revision)
		c.JSON(http.StatusCreated, resp)
	}
}

// replayLine answers from a stored result and reports whether it did.
func replayLine(c *gin.Context, idem IdempotencyStore, storageKey, idemKey string) bool {
	payload, ok, _ := idem.GetResult(c.Request.Context(), storageKey)
	if !ok {
		return false
	}

	var stored struct {
		Check struct {
			Revision int64 `json:"revision"`
		} `json:"check"`
	}
	if err := json.Unmarshal([]byte(payload), &stored); err == nil {
		setRevision(c, stored.Check.Revision)
	}

	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))

	return true
}

// @Summary  Update a line; qty <= 0 removes it
// @Tags     lines
// @Security StaffBearer
// @Param    id   path  string  true  "Check ID (uuid)"
// @Param    req  body  UpdateLineRequest  true  "payload"
// @Success  200  {object}  LineResponse
// @Success  204  "line removed"
// @Failure  403  {object}  ErrorResponse  "comping needs a manager"
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /checks/{id}/lines [patch]
func handleUpdateLine(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req UpdateLineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		staff, _ := staffFrom(c)

		res, err := d.Ledger.UpdateLine(c.Request.Context(), staff, id, req.toPatch())
		if err != nil {
			respondErr(c, err)
			return
		}

		setRevision(c, res.Check.Revision)

		if res.Removed {
			c.Status(http.StatusNoContent)
			return
		}

		c.JSON(http.StatusOK, LineResponse{Line: res.Line, Check: res.Check})
	}
}

// @Summary  Remove every line of a check
// @Tags     lines
// @Security StaffBearer
// @Param    id  path   string  true   "Check ID (uuid)"
// @Param    expectedRevision  query  int  false  "revision the client last saw"
// @Success  204  "cleared"
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /checks/{id}/lines [delete]
func handleClearLines(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var expected *int64
		if raw := c.Query("expectedRevision"); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || v < 1 {
				badRequest(c, "invalid expectedRevision")
				return
			}
			expected = &v
		}

		check, err := d.Ledger.ClearLines(c.Request.Context(), id, expected)
		if err != nil {
			respondErr(c, err)
			return
		}

		setRevision(c, check.Revision)
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Table board
// @Tags     tables
// @Security StaffBearer
// @Success  200  {array}  domain.Table
// @Router   /tables [get]
func handleListTables(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		board, err := d.Tables.Board(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, board, "no-cache", true)
	}
}

// @Summary  Mark a table served or paying
// @Tags     tables
// @Security StaffBearer
// @Param    id   path  string  true  "Table ID"
// @Param    req  body  SetTableStatusRequest  true  "payload"
// @Success  200  {object}  domain.Table
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "transition not allowed"
// @Router   /tables/{id}/status [put]
func handleSetTableStatus(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetTableStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		t, err := d.Tables.SetStatus(c.Request.Context(), c.Param("id"), domain.TableStatus(req.Status))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, t)
	}
}

// @Summary  Menu item lookup
// @Tags     menu
// @Security StaffBearer
// @Param    id  path  string  true  "Menu item ID"
// @Success  200  {object}  domain.MenuItem
// @Failure  404  {object}  ErrorResponse
// @Router   /menu/{id} [get]
func handleGetMenuItem(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := d.Menu.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, item, "private, max-age=60", true)
	}
}

// @Summary  Create or update tables
// @Tags     admin
// @Security StaffBearer
// @Param    req  body  UpsertTablesRequest  true  "payload"
// @Success  201  {object}  CountResponse
// @Router   /admin/tables [post]
func handleUpsertTables(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpsertTablesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		tables := make([]domain.Table, 0, len(req.Tables))
		for _, t := range req.Tables {
			tables = append(tables, domain.Table{
				ID:         t.ID,
				Label:      t.Label,
				Zone:       t.Zone,
				Seats:      t.Seats,
				Combinable: t.Combinable,
			})
		}

		if err := d.Admin.UpsertTables(c.Request.Context(), tables); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CountResponse{Saved: len(tables)})
	}
}

// @Summary  Create or update menu items
// @Tags     admin
// @Security StaffBearer
// @Param    req  body  UpsertMenuItemsRequest  true  "payload"
// @Success  201  {object}  CountResponse
// @Router   /admin/menu-items [post]
func handleUpsertMenuItems(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpsertMenuItemsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		items := make([]domain.MenuItem, 0, len(req.Items))
		for _, m := range req.Items {
			available := true
			if m.Available != nil {
				available = *m.Available
			}
			items = append(items, domain.MenuItem{
				ID:          m.ID,
				Name:        m.Name,
				Price:       m.Price,
				ModifierKey: m.ModifierKey,
				Modifiers:   m.Modifiers,
				Available:   available,
			})
		}

		if err := d.Admin.UpsertMenuItems(c.Request.Context(), items); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CountResponse{Saved: len(items)})
	}
}

// @Summary  Register trusted terminals
// @Tags     admin
// @Security StaffBearer
// @Param    req  body  TrustDevicesRequest  true  "payload"
// @Success  201  {object}  CountResponse
// @Router   /admin/devices [post]
func handleTrustDevices(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TrustDevicesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if err := d.Admin.TrustDevices(c.Request.Context(), req.DeviceIDs); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CountResponse{Saved: len(req.DeviceIDs)})
	}
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func setRevision(c *gin.Context, rev int64) {
	c.Header(headerRevision, strconv.FormatInt(rev, 10))
}
