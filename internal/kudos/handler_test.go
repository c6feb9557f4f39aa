package kudos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orgkudos/backend/internal/middleware"
	"github.com/orgkudos/backend/internal/models"
	"github.com/orgkudos/backend/pkg/response"
)

type recordingFeed struct {
	orgIDs []uuid.UUID
	kudos  []*models.Kudo
}

func (r *recordingFeed) PublishKudo(orgID uuid.UUID, k *models.Kudo) {
	r.orgIDs = append(r.orgIDs, orgID)
	r.kudos = append(r.kudos, k)
}

func newTestRouter(h *Handler, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	asUser := func(c *gin.Context) { c.Set(middleware.ContextUserID, userID) }
	r.POST("/kudos", asUser, h.Give)
	r.GET("/kudos/received", asUser, h.ListReceived)
	r.GET("/kudos/given", asUser, h.ListGiven)
	return r
}

func giveBody(receiver uuid.UUID, message string) *bytes.Reader {
	b, _ := json.Marshal(map[string]string{"receiver": receiver.String(), "message": message})
	return bytes.NewReader(b)
}

func TestHandler_Give(t *testing.T) {
	a, b := twoUsersSameOrg()
	store := newFakeStore(a, b)
	feed := &recordingFeed{}
	engine := NewEngine(store, store, 3, fixedClock(tuesday))
	h := NewHandler(engine, feed, zap.NewNop())
	router := newTestRouter(h, a.ID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/kudos", giveBody(b.ID, "great work"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		Success bool        `json:"success"`
		Data    models.Kudo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "alice", body.Data.Sender)
	assert.Equal(t, "bob", body.Data.Receiver)
	assert.Equal(t, "great work", body.Data.Message)

	require.Len(t, feed.kudos, 1)
	assert.Equal(t, *a.OrganizationID, feed.orgIDs[0])
}

func TestHandler_Give_RuleFailures(t *testing.T) {
	acme := uuid.New()
	globex := uuid.New()
	a := &models.User{ID: uuid.New(), Username: "alice", OrganizationID: &acme}
	b := &models.User{ID: uuid.New(), Username: "bob", OrganizationID: &acme}
	c := &models.User{ID: uuid.New(), Username: "carol", OrganizationID: &globex}
	store := newFakeStore(a, b, c)
	feed := &recordingFeed{}
	engine := NewEngine(store, store, 3, fixedClock(tuesday))
	h := NewHandler(engine, feed, zap.NewNop())
	router := newTestRouter(h, a.ID)

	post := func(body *bytes.Reader) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/kudos", body)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}
	errorOf := func(w *httptest.ResponseRecorder) string {
		var body response.Body
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body.Error
	}

	t.Run("organization mismatch", func(t *testing.T) {
		w := post(giveBody(c.ID, "thanks"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrOrganizationMismatch.Error(), errorOf(w))
	})

	t.Run("self kudo", func(t *testing.T) {
		w := post(giveBody(a.ID, "me"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrSelfKudo.Error(), errorOf(w))
	})

	t.Run("unknown receiver", func(t *testing.T) {
		w := post(giveBody(uuid.New(), "hi"))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing message", func(t *testing.T) {
		raw, _ := json.Marshal(map[string]string{"receiver": b.ID.String()})
		w := post(bytes.NewReader(raw))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("quota exceeded", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			w := post(giveBody(b.ID, fmt.Sprintf("kudo %d", i+1)))
			require.Equal(t, http.StatusCreated, w.Code)
		}
		w := post(giveBody(b.ID, "fourth"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrQuotaExceeded.Error(), errorOf(w))
	})

	assert.Len(t, feed.kudos, 3, "only successful gives reach the feed")
}

func TestHandler_Listings(t *testing.T) {
	a, b := twoUsersSameOrg()
	store := newFakeStore(a, b)
	engine := NewEngine(store, store, 3, fixedClock(tuesday))
	h := NewHandler(engine, nil, zap.NewNop())

	_, err := engine.Give(context.Background(), a.ID, b.ID, "hello")
	require.NoError(t, err)

	get := func(router *gin.Engine, path string) []models.Kudo {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Data []models.Kudo `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body.Data
	}

	given := get(newTestRouter(h, a.ID), "/kudos/given")
	require.Len(t, given, 1)
	assert.Equal(t, "hello", given[0].Message)

	received := get(newTestRouter(h, b.ID), "/kudos/received")
	require.Len(t, received, 1)
	assert.Equal(t, given[0].ID, received[0].ID)
}
