package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/herbtrace/herbtrace/internal/audit/domain"
	auditrepository "github.com/herbtrace/herbtrace/internal/audit/repository"
	auditservice "github.com/herbtrace/herbtrace/internal/audit/service"
	batchdomain "github.com/herbtrace/herbtrace/internal/batch/domain"
	batchrepository "github.com/herbtrace/herbtrace/internal/batch/repository"
	batchservice "github.com/herbtrace/herbtrace/internal/batch/service"
	compliancedomain "github.com/herbtrace/herbtrace/internal/compliance/domain"
	complianceservice "github.com/herbtrace/herbtrace/internal/compliance/service"
	"github.com/herbtrace/herbtrace/internal/config"
	ledgernull "github.com/herbtrace/herbtrace/internal/ledgeranchor/null"
	"github.com/herbtrace/herbtrace/internal/locking"
	reportservice "github.com/herbtrace/herbtrace/internal/report/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&batchdomain.Batch{},
		&batchdomain.Event{},
		&batchdomain.LedgerReceipt{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)

	log := zap.NewNop()
	rules := compliancedomain.DefaultRuleSet()
	batchRepo := batchrepository.Provide()

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    gdb,
		Log:   log,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})
	batchSvc := batchservice.NewService(batchservice.Params{
		DB:     gdb,
		Log:    log,
		GenID:  node,
		Repo:   batchRepo,
		Ledger: ledgernull.New(),
		Locker: locking.NewMutexLocker(),
		Audit:  auditSvc,
		Rules:  rules,
	})
	complianceSvc := complianceservice.NewService(complianceservice.Params{
		DB:      gdb,
		Log:     log,
		Batches: batchRepo,
		Audit:   auditSvc,
		Rules:   rules,
	})
	reportSvc := reportservice.NewService(reportservice.Params{
		DB:      gdb,
		Log:     log,
		Batches: batchRepo,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	return NewServer(ServerParams{
		Gin:           engine,
		Cfg:           config.Config{},
		DB:            gdb,
		GenID:         node,
		BatchSvc:      batchSvc,
		ComplianceSvc: complianceSvc,
		ReportSvc:     reportSvc,
		AuditSvc:      auditSvc,
	})
}

type actorHeaders struct {
	id          string
	role        string
	permissions string
}

func doRequest(t *testing.T, s *Server, method, path string, body any, actor *actorHeaders) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("X-Actor-Id", actor.id)
		req.Header.Set("X-Actor-Role", actor.role)
		if actor.permissions != "" {
			req.Header.Set("X-Actor-Permissions", actor.permissions)
		}
	}

	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func createBatchBody() map[string]any {
	return map[string]any{
		"batch_id":     "BATCH001",
		"species":      "Ashwagandha",
		"quantity":     25.0,
		"unit":         "kg",
		"latitude":     12.9716,
		"longitude":    77.5946,
		"address":      "Bangalore farm cluster",
		"harvest_date": "2026-06-10",
	}
}

var (
	farmer    = &actorHeaders{id: "farmer-1", role: "farmer"}
	admin     = &actorHeaders{id: "admin-1", role: "admin"}
	regulator = &actorHeaders{id: "reg-1", role: "regulator"}
	lab       = &actorHeaders{id: "lab-1", role: "lab", permissions: "event:quality_test"}
)

func TestAPI_RequiresActor(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/batches", createBatchBody(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_CreateAndGetBatch(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/batches", createBatchBody(), farmer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data struct {
			BatchID    string `json:"batch_id"`
			Status     string `json:"status"`
			Compliance struct {
				Overall bool `json:"overall"`
			} `json:"compliance"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "BATCH001", created.Data.BatchID)
	assert.Equal(t, "harvested", created.Data.Status)
	assert.False(t, created.Data.Compliance.Overall)

	rec = doRequest(t, s, http.MethodGet, "/api/batches/BATCH001", nil, farmer)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Another farmer cannot see it.
	rec = doRequest(t, s, http.MethodGet, "/api/batches/BATCH001", nil, &actorHeaders{id: "farmer-2", role: "farmer"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/batches/MISSING", nil, farmer)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_DuplicateBatchConflict(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/batches", createBatchBody(), farmer)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/batches", createBatchBody(), farmer)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_CreateBatchValidation(t *testing.T) {
	s := newTestServer(t)

	body := createBatchBody()
	body["harvest_date"] = "yesterday"
	rec := doRequest(t, s, http.MethodPost, "/api/batches", body, farmer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = createBatchBody()
	body["quantity"] = 0.0
	rec = doRequest(t, s, http.MethodPost, "/api/batches", body, farmer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_AppendEventFlow(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/batches", createBatchBody(), farmer)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/events", map[string]any{
		"batch_id":    "BATCH001",
		"event_type":  "quality_test",
		"description": "full lab panel",
		"quality_data": map[string]any{
			"purity":      97.5,
			"moisture":    8.0,
			"ash_content": 5.0,
		},
	}, lab)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Status     string `json:"status"`
			Compliance struct {
				Overall bool `json:"overall"`
			} `json:"compliance"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tested", resp.Data.Status)
	assert.True(t, resp.Data.Compliance.Overall)

	// Unknown event types are rejected, not ignored.
	rec = doRequest(t, s, http.MethodPost, "/api/events", map[string]any{
		"batch_id":    "BATCH001",
		"event_type":  "inspection",
		"description": "surprise visit",
	}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing permission.
	rec = doRequest(t, s, http.MethodPost, "/api/events", map[string]any{
		"batch_id":    "BATCH001",
		"event_type":  "processing",
		"description": "drying",
	}, &actorHeaders{id: "proc-1", role: "processor"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_ComplianceCheckAndViolations(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/batches", createBatchBody(), farmer)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/compliance/check", map[string]any{
		"batch_id": "BATCH001",
	}, regulator)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var check struct {
		Data struct {
			BatchID    string `json:"batch_id"`
			Compliance struct {
				Overall    bool `json:"overall"`
				Violations []struct {
					Kind     string `json:"kind"`
					Severity string `json:"severity"`
				} `json:"violations"`
			} `json:"compliance"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &check))
	assert.Equal(t, "BATCH001", check.Data.BatchID)
	assert.False(t, check.Data.Compliance.Overall)
	assert.NotEmpty(t, check.Data.Compliance.Violations)

	rec = doRequest(t, s, http.MethodPost, "/api/compliance/check", map[string]any{
		"batch_id": "MISSING",
	}, regulator)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/compliance/violations", nil, regulator)
	require.Equal(t, http.StatusOK, rec.Code)

	var violations struct {
		Data []struct {
			BatchID  string `json:"batch_id"`
			Severity string `json:"severity"`
			Status   string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &violations))
	require.NotEmpty(t, violations.Data)
	assert.Equal(t, "BATCH001", violations.Data[0].BatchID)
	assert.Equal(t, "open", violations.Data[0].Status)

	// Farmers have no cross-batch oversight.
	rec = doRequest(t, s, http.MethodGet, "/api/compliance/violations", nil, farmer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_ComplianceReport(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/batches", createBatchBody(), farmer)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/compliance/report/BATCH001", nil, regulator)
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		Data struct {
			BatchID         string `json:"batch_id"`
			Recommendations []struct {
				Priority string `json:"priority"`
			} `json:"recommendations"`
			LedgerReceipts []struct {
				Synthetic bool `json:"synthetic"`
			} `json:"ledger_receipts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "BATCH001", report.Data.BatchID)
	assert.NotEmpty(t, report.Data.Recommendations)
	require.NotEmpty(t, report.Data.LedgerReceipts)
	assert.True(t, report.Data.LedgerReceipts[0].Synthetic)

	rec = doRequest(t, s, http.MethodGet, "/api/compliance/report/MISSING", nil, regulator)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_DeleteBatchAdminOnly(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/batches", createBatchBody(), farmer)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodDelete, "/api/batches/BATCH001", nil, farmer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, s, http.MethodDelete, "/api/batches/BATCH001", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/batches/BATCH001", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_AuditLogsRoleGate(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/batches", createBatchBody(), farmer)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/audit-logs", nil, farmer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/audit-logs", nil, regulator)
	require.Equal(t, http.StatusOK, rec.Code)

	var logs struct {
		Data []struct {
			Action   string `json:"action"`
			TargetID string `json:"target_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	require.NotEmpty(t, logs.Data)
	assert.Equal(t, "batch.create", logs.Data[0].Action)
	assert.Equal(t, "BATCH001", logs.Data[0].TargetID)
}

func TestAPI_UpdateEvent(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/batches", createBatchBody(), farmer)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data struct {
			Events []struct {
				EventID string `json:"event_id"`
			} `json:"events"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.Events)
	eventID := created.Data.Events[0].EventID

	rec = doRequest(t, s, http.MethodPatch, "/api/events/"+eventID, map[string]any{
		"description": "corrected note",
	}, farmer)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodPatch, "/api/events/"+eventID, map[string]any{
		"description": "tampered",
	}, &actorHeaders{id: "farmer-2", role: "farmer"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, s, http.MethodPatch, "/api/events/evt-missing", map[string]any{
		"description": "nope",
	}, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
