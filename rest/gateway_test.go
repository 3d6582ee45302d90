package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/jackblog/blogkit/config"
	"github.com/jackblog/blogkit/errs"
	"github.com/jackblog/blogkit/schema"
)

func decodeBody(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

func newTestGateway(t *testing.T, handler http.Handler) *Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := config.Default()
	cfg.BaseURL = server.URL + "/api"
	return NewGateway(cfg, server.Client())
}

func TestEnvelopeUnwrapReturnsData(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/posts/hello-world", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":{"slug":"hello-world","title":"Hello","commentCount":2}}`))
	}))

	post, err := gw.GetPost(context.Background(), "hello-world")
	require.NoError(t, err)
	require.Equal(t, "hello-world", post.Slug)
	require.Equal(t, "Hello", post.Title)
	require.Equal(t, 2, post.CommentCount)
}

func TestBearerTokenInjection(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"message":"","data":{"valid":true,"subject":"admin"}}`))
	}))

	result, err := gw.VerifyToken(context.Background(), "tok-123")
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, "admin", result.Subject)
}

func TestNoAuthHeaderWithoutToken(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"message":"","data":[]}`))
	}))

	_, err := gw.Comments(context.Background(), "s")
	require.NoError(t, err)
}

func TestErrorEnvelopeMessageSurfaced(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"password mismatch","data":null}`))
	}))

	err := gw.DeleteComment(context.Background(), 7, schema.CommentDeleteRequest{Password: "wrong"})
	require.Error(t, err)
	require.Equal(t, 400, errs.HTTPStatus(err))
	require.Equal(t, errs.CodeInvalid, errs.CodeOf(err))
	require.Contains(t, err.Error(), "password mismatch")
}

func TestNonJSONErrorBodyFallsBackToGenericMessage(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))

	_, err := gw.GetPost(context.Background(), "s")
	require.Error(t, err)
	require.Equal(t, 502, errs.HTTPStatus(err))
	require.Equal(t, errs.CodeServer, errs.CodeOf(err))
	require.Contains(t, err.Error(), "HTTP error! status: 502")
}

func TestAuthStatusMapsToAuthCode(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"invalid token","data":null}`))
	}))

	_, err := gw.VerifyToken(context.Background(), "expired")
	require.True(t, errs.IsCode(err, errs.CodeAuth))
}

func TestUnsuccessfulEnvelopeInsideOKResponse(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"backend degraded","data":null}`))
	}))

	_, err := gw.Categories(context.Background())
	require.Error(t, err)
	require.Equal(t, errs.CodeServer, errs.CodeOf(err))
	require.Contains(t, err.Error(), "backend degraded")
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	cfg := config.Default()
	cfg.BaseURL = server.URL + "/api"
	gw := NewGateway(cfg, nil)
	server.Close()

	_, err := gw.GetPost(context.Background(), "s")
	require.True(t, errs.IsCode(err, errs.CodeNetwork), "got: %v", err)
}

func TestQueryParameterEncoding(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1", r.URL.Query().Get("page"))
		require.Equal(t, "20", r.URL.Query().Get("size"))
		require.Equal(t, "dev log", r.URL.Query().Get("category"))
		_, _ = w.Write([]byte(`{"success":true,"message":"","data":{"content":[],"page":1,"size":20,"totalElements":0,"totalPages":0,"first":false,"last":true}}`))
	}))

	page, err := gw.ListPosts(context.Background(), 1, 20, "dev log")
	require.NoError(t, err)
	require.True(t, page.Last)
}

func TestToggleReactionSendsClientID(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req schema.ReactionRequest
		require.NoError(t, decodeBody(r, &req))
		require.Equal(t, "👍", req.Emoji)
		require.Equal(t, "client_1_a", req.ClientID)
		_, _ = w.Write([]byte(`{"success":true,"message":"","data":{"counts":{"👍":1},"userReactions":["👍"]}}`))
	}))

	set, err := gw.ToggleReaction(context.Background(), "s", schema.ReactionRequest{Emoji: "👍", ClientID: "client_1_a"})
	require.NoError(t, err)
	require.Equal(t, 1, set.Counts["👍"])
}

func TestEmptyBodyOnVoidEndpoint(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, gw.IncrementView(context.Background(), "s"))
}
