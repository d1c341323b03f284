package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应不是合法 JSON: %v", err)
	}
	return resp
}

func TestOK_CarriesRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(requestIDKey, "req-123")

	OK(c, map[string]int{"n": 1})

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	resp := decode(t, w)
	if resp.Code != CodeOK || resp.Message != "success" {
		t.Errorf("成功信封不正确: %+v", resp)
	}
	if resp.RequestID != "req-123" {
		t.Errorf("request_id 期望 req-123，实际 %q", resp.RequestID)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		call   func(c *gin.Context)
		status int
		code   int
	}{
		{"bad request", func(c *gin.Context) { BadRequest(c, 10001, "参数错误") }, http.StatusBadRequest, 10001},
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, 10002, "未认证") }, http.StatusUnauthorized, 10002},
		{"forbidden", func(c *gin.Context) { Forbidden(c, 12002, "无权操作") }, http.StatusForbidden, 12002},
		{"not found", func(c *gin.Context) { NotFound(c, 12001, "不存在") }, http.StatusNotFound, 12001},
		{"rate limited", func(c *gin.Context) { TooManyRequests(c, 10004, "太频繁") }, http.StatusTooManyRequests, 10004},
		{"unavailable", func(c *gin.Context) { ServiceUnavailable(c, 17001, "不可用") }, http.StatusServiceUnavailable, 17001},
		{"internal", InternalError, http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.call(c)
			if w.Code != tt.status {
				t.Errorf("期望 HTTP %d，实际 %d", tt.status, w.Code)
			}
			resp := decode(t, w)
			if resp.Code != tt.code {
				t.Errorf("期望业务码 %d，实际 %d", tt.code, resp.Code)
			}
			if resp.Data != nil || resp.RequestID != "" {
				t.Errorf("错误响应不应带 data/request_id: %+v", resp)
			}
		})
	}
}

func TestErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	ErrorWithDetails(c, http.StatusBadRequest, 15001, "ICS 文件格式无效", "line 3: missing colon")

	resp := decode(t, w)
	if resp.Details != "line 3: missing colon" {
		t.Errorf("details 未透传: %+v", resp)
	}
}
