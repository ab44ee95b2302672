package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/zcheck/blogpipe/internal/kv"
	"github.com/zcheck/blogpipe/internal/topics"
	"github.com/zcheck/blogpipe/pkg/middleware"
)

func TestTopics_ListAndReplace(t *testing.T) {
	q := topics.NewQueue(kv.NewMemoryStore())
	g := gin.New()
	RegisterTopicRoutes(g, q, nil, middleware.SecretAuth(middleware.Secret{Name: "admin", Value: "adm1n"}))

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/topics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"topics":[]}`, w.Body.String())

	put := func(body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/topics", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		g.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusUnauthorized, put(`{"topics":["a"]}`, "").Code)
	require.Equal(t, http.StatusBadRequest, put(`{}`, "adm1n").Code)

	w = put(`{"topics":["주방 리모델링","  ","욕실 타일"]}`, "adm1n")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Topics []string `json:"topics"`
		Count  int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, []string{"주방 리모델링", "욕실 타일"}, got.Topics)
	require.Equal(t, 2, got.Count)

	next, err := q.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "주방 리모델링", next.Keyword)
}

func TestTopics_Pool(t *testing.T) {
	pool := topics.NewPool([]topics.Topic{{Keyword: "주방", Slug: "kitchen"}, {Keyword: "욕실", Slug: "bathroom"}},
		func(context.Context) ([]string, error) { return []string{"kitchen"}, nil })
	g := gin.New()
	RegisterTopicRoutes(g, topics.NewQueue(kv.NewMemoryStore()), pool, nil)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/topics/pool", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"slug":"bathroom"`)
	require.NotContains(t, w.Body.String(), `"slug":"kitchen"`)
}
