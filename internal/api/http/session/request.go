package session

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/scoped/pkg/interfaces/scope"
)

// Request 把 gin 请求适配为 scope.RequestHandle
//
// 会话按 Cookie 懒解析；Session(true) 在没有有效会话时创建新会话并写回 Cookie。
type Request struct {
	c          *gin.Context
	store      *Store
	cookieName string

	mu       sync.Mutex
	resolved bool
	session  *Session
}

// NewRequest 创建请求句柄
func NewRequest(c *gin.Context, store *Store, cookieName string) *Request {
	return &Request{c: c, store: store, cookieName: cookieName}
}

func (r *Request) QueryString() string { return r.c.Request.URL.RawQuery }

// Parameter 先查查询参数，再查表单参数
func (r *Request) Parameter(name string) (string, bool) {
	if v, ok := r.c.GetQuery(name); ok {
		return v, true
	}
	return r.c.GetPostForm(name)
}

// Session 实现 scope.RequestHandle
func (r *Request) Session(force bool) scope.SessionHandle {
	if sess := r.HTTPSession(force); sess != nil {
		return sess
	}
	return nil
}

// HTTPSession 与 Session 相同，返回具体类型
func (r *Request) HTTPSession(force bool) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil && r.session.Valid() {
		return r.session
	}
	if !r.resolved {
		r.resolved = true
		if id, err := r.c.Cookie(r.cookieName); err == nil && id != "" {
			if sess, ok := r.store.Get(id); ok {
				r.session = sess
				return sess
			}
		}
	}
	if !force {
		return nil
	}

	sess, err := r.store.Create()
	if err != nil {
		return nil
	}
	r.session = sess
	r.writeCookie(sess.ID())
	return sess
}

// Rotate 轮换当前会话标识并写回 Cookie
func (r *Request) Rotate() (*Session, error) {
	current := r.HTTPSession(false)
	if current == nil {
		return nil, ErrSessionNotFound
	}
	sess, err := r.store.ChangeID(current.ID())
	if err != nil {
		return nil, err
	}
	r.writeCookie(sess.ID())
	return sess, nil
}

func (r *Request) writeCookie(id string) {
	r.c.SetSameSite(http.SameSiteLaxMode)
	r.c.SetCookie(r.cookieName, id, 0, "/", "", false, true)
}

var _ scope.RequestHandle = (*Request)(nil)
