package session

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGinContext(method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	return c, w
}

func TestRequest_QueryAndParameter(t *testing.T) {
	store, _ := newTestStore(t)
	c, _ := newGinContext(http.MethodPost, "/x?cid=7&a=1", url.Values{"form": {"v"}}.Encode())

	r := NewRequest(c, store, "SID")
	assert.Equal(t, "cid=7&a=1", r.QueryString())

	v, ok := r.Parameter("cid")
	assert.True(t, ok)
	assert.Equal(t, "7", v)

	v, ok = r.Parameter("form")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = r.Parameter("absent")
	assert.False(t, ok)
}

func TestRequest_SessionWithoutCookie(t *testing.T) {
	store, _ := newTestStore(t)
	c, w := newGinContext(http.MethodGet, "/", "")
	r := NewRequest(c, store, "SID")

	assert.Nil(t, r.Session(false))
	assert.Equal(t, 0, store.Len())

	h := r.Session(true)
	require.NotNil(t, h)
	assert.Same(t, h, r.Session(false))
	assert.Contains(t, w.Header().Get("Set-Cookie"), "SID="+h.ID())
}

func TestRequest_SessionFromCookie(t *testing.T) {
	store, _ := newTestStore(t)
	sess, err := store.Create()
	require.NoError(t, err)

	c, _ := newGinContext(http.MethodGet, "/", "")
	c.Request.AddCookie(&http.Cookie{Name: "SID", Value: sess.ID()})
	r := NewRequest(c, store, "SID")

	assert.Same(t, sess, r.HTTPSession(false))
}

func TestRequest_InvalidatedSessionReplacedOnForce(t *testing.T) {
	store, _ := newTestStore(t)
	c, _ := newGinContext(http.MethodGet, "/", "")
	r := NewRequest(c, store, "SID")

	first := r.HTTPSession(true)
	require.NoError(t, first.Invalidate())

	assert.Nil(t, r.Session(false))
	second := r.HTTPSession(true)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestRequest_Rotate(t *testing.T) {
	store, _ := newTestStore(t)
	c, w := newGinContext(http.MethodGet, "/", "")
	r := NewRequest(c, store, "SID")

	_, err := r.Rotate()
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sess := r.HTTPSession(true)
	oldID := sess.ID()
	rotated, err := r.Rotate()
	require.NoError(t, err)
	assert.NotEqual(t, oldID, rotated.ID())

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, rotated.ID(), cookies[len(cookies)-1].Value)
}
