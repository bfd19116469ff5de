package resource

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 2*time.Second)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("/api", time.Second)
	assert.Error(t, err)
}

func TestClient_GetDecodesPopulatedRefs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getTransactionByUserId/u1", r.URL.Path)
		assert.Equal(t, "2025", r.URL.Query().Get("year"))
		assert.Empty(t, r.Header.Get("Content-Type"), "GET carries no body")
		_, _ = io.WriteString(w, `[{"_id":"t1","amount":12.5,"date":"2025-01-02","category_id":{"_id":"c1","name":"Income"}}]`)
	})

	txs, err := c.TransactionsByUser(context.Background(), "u1", "2025")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "c1", txs[0].Category.ID)
	assert.Equal(t, int64(1250), txs[0].Amount.Cents)
}

func TestClient_MutationsSendJSON(t *testing.T) {
	var got struct {
		IDs []string `json:"category_ids"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.DeleteSelectedCategories(context.Background(), []string{"2", "4"}))
	assert.Equal(t, []string{"2", "4"}, got.IDs)
}

func TestClient_DeleteWithoutBodyStillDeclaresJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.DeleteAllCategories(context.Background()))
}

func TestClient_ServerFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", 400, `{"message":"Category is in use"}`, "Category is in use"},
		{"detail string", 404, `{"detail":"User not found"}`, "User not found"},
		{"detail list", 422, `{"detail":[{"msg":"field required"},{"msg":"not a date"}]}`, "field required; not a date"},
		{"error field", 409, `{"error":"duplicate"}`, "duplicate"},
		{"html body", 502, `<html>bad gateway</html>`, MsgServer},
		{"empty message", 500, `{"message":""}`, MsgServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Categories(context.Background())
			f := AsFailure(err)
			require.NotNil(t, f)
			assert.Equal(t, KindServer, f.Kind)
			assert.Equal(t, tt.status, f.Status)
			assert.Equal(t, tt.message, f.Message)
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(base, time.Second)
	require.NoError(t, err)
	_, err = c.Users(context.Background())

	f := AsFailure(err)
	require.NotNil(t, f)
	assert.Equal(t, KindNetwork, f.Kind)
	assert.Zero(t, f.Status)
	assert.Equal(t, MsgNetwork, f.Message)
	assert.False(t, IsUnauthorized(err))
}

func TestClient_DecodeFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"not":"a list"}`)
	})
	_, err := c.Roles(context.Background())
	assert.Equal(t, KindDecode, AsFailure(err).Kind)
}

func TestClient_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.Profile(context.Background(), "u1")
	assert.True(t, IsUnauthorized(err))
}

func TestClient_CoalescesIdenticalGets(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		_, _ = io.WriteString(w, `[{"_id":"c1","name":"Income"}]`)
	})

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cats, err := c.Categories(context.Background())
			if err == nil {
				results[i] = len(cats)
			}
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	for _, n := range results {
		assert.Equal(t, 1, n)
	}
}

func TestClient_CancelledCallerDoesNotFailSharedGet(t *testing.T) {
	var hits int32
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		arrived <- struct{}{}
		<-release
		_, _ = io.WriteString(w, `[{"_id":"c1","name":"Income"}]`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.Categories(ctx)
		first <- err
	}()
	<-arrived

	second := make(chan int, 1)
	go func() {
		cats, err := c.Categories(context.Background())
		if err != nil {
			second <- -1
			return
		}
		second <- len(cats)
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	err := <-first
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, KindNetwork, f.Kind)

	close(release)
	assert.Equal(t, 1, <-second, "the other caller still gets the data")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestAsFailure(t *testing.T) {
	assert.Nil(t, AsFailure(nil))

	plain := AsFailure(errors.New("boom"))
	assert.Equal(t, KindNetwork, plain.Kind)

	wrapped := AsFailure(errors.Join(errors.New("ctx"), &Failure{Kind: KindServer, Status: 500, Message: "x"}))
	assert.Equal(t, 500, wrapped.Status)

	assert.Equal(t, "fallback", UserMessage(errors.New("raw"), "fallback"))
	assert.True(t, strings.Contains((&Failure{Kind: KindServer, Status: 404, Message: "gone"}).Error(), "404"))
}
