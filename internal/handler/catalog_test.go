package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillsync/internal/middleware"
	"tillsync/internal/model"
	"tillsync/internal/syncer"
)

// stubCo is an in-memory syncer.Service for exercising handlers without a
// remote store or replica.
type stubCo struct {
	data map[string]map[string]model.Record
}

func newStubCo() *stubCo {
	return &stubCo{data: make(map[string]map[string]model.Record)}
}

func (s *stubCo) seed(collection string, recs ...model.Record) {
	if s.data[collection] == nil {
		s.data[collection] = make(map[string]model.Record)
	}
	for _, rec := range recs {
		s.data[collection][rec.ID()] = rec
	}
}

func (s *stubCo) Read(_ context.Context, _ model.SessionContext, collection string, f syncer.Filter) (*syncer.Result, error) {
	var out []model.Record
	for _, rec := range s.data[collection] {
		ok := true
		for k, v := range f.Equals {
			if rec.String(k) != v {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	return &syncer.Result{Records: out, Source: syncer.SourceRemote}, nil
}

func (s *stubCo) Write(_ context.Context, _ model.SessionContext, collection, id string, rec model.Record) (*syncer.WriteResult, error) {
	if id == "" {
		id = uuid.NewString()
	}
	rec["id"] = id
	s.seed(collection, rec)
	return &syncer.WriteResult{Record: rec, Source: syncer.SourceRemote}, nil
}

func (s *stubCo) GuardedDelete(_ context.Context, _ model.SessionContext, collection, id string, guard *syncer.DependencyGuard) error {
	if guard != nil {
		for _, rec := range s.data[guard.Collection] {
			if rec.String(guard.ForeignKey) == guard.Value {
				return &syncer.PreconditionError{Collection: collection, ID: id, Reason: guard.Reason}
			}
		}
	}
	delete(s.data[collection], id)
	return nil
}

func (s *stubCo) BulkGuardedDelete(ctx context.Context, sess model.SessionContext, collection string, ids []string, guards map[string]*syncer.DependencyGuard) (*syncer.BulkReport, error) {
	report := &syncer.BulkReport{Failed: []syncer.ItemFailure{}}
	for _, id := range ids {
		if err := s.GuardedDelete(ctx, sess, collection, id, guards[id]); err != nil {
			report.Failed = append(report.Failed, syncer.ItemFailure{ID: id, Reason: "has_products"})
			continue
		}
		report.Succeeded++
	}
	return report, nil
}

func (s *stubCo) Status(context.Context) (*syncer.Status, error) {
	return &syncer.Status{Online: true}, nil
}

func newCatalogRouter(co syncer.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.SessionKey, model.SessionContext{
			OperatorID: "op-1", Role: model.RoleAdmin, Epoch: 1,
		})
	})
	h := NewCatalogHandler(co)
	r.GET("/v1/categories", h.ListCategories)
	r.POST("/v1/categories", h.CreateCategory)
	r.DELETE("/v1/categories/:id", h.DeleteCategory)
	r.POST("/v1/categories/bulk-delete", h.BulkDeleteCategories)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndListCategories(t *testing.T) {
	co := newStubCo()
	r := newCatalogRouter(co)

	w := doJSON(t, r, http.MethodPost, "/v1/categories", gin.H{"name": "Drinks"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []model.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Drinks", resp.Data[0].String("name"))
}

func TestCreateCategoryValidation(t *testing.T) {
	r := newCatalogRouter(newStubCo())
	w := doJSON(t, r, http.MethodPost, "/v1/categories", gin.H{"name": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDeleteCategoryRefusedWhenInUse(t *testing.T) {
	co := newStubCo()
	co.seed(model.CollectionCategories, model.Record{"id": "c1", "name": "Drinks"})
	co.seed(model.CollectionProducts, model.Record{"id": "p1", "categoryId": "c1"})
	r := newCatalogRouter(co)

	w := doJSON(t, r, http.MethodDelete, "/v1/categories/c1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "has_products")
}

func TestDeleteCategoryUnknownIs404(t *testing.T) {
	r := newCatalogRouter(newStubCo())
	w := doJSON(t, r, http.MethodDelete, "/v1/categories/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBulkDeleteReportsPerItem(t *testing.T) {
	co := newStubCo()
	co.seed(model.CollectionCategories,
		model.Record{"id": "c1", "name": "Drinks"},
		model.Record{"id": "c2", "name": "Snacks"},
	)
	co.seed(model.CollectionProducts, model.Record{"id": "p1", "categoryId": "c2"})
	r := newCatalogRouter(co)

	w := doJSON(t, r, http.MethodPost, "/v1/categories/bulk-delete", gin.H{"ids": []string{"c1", "c2"}})
	require.Equal(t, http.StatusOK, w.Code)

	var report syncer.BulkReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "c2", report.Failed[0].ID)
}
