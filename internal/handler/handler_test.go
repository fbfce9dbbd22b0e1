package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"referralsystem/internal/service"
	"referralsystem/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePagination(t *testing.T) {
	cases := []struct {
		name         string
		page, size   string
		wantPage     int
		wantPageSize int
	}{
		{"正常参数", "2", "20", 2, 20},
		{"page 为 0 回退到 1", "0", "10", 1, 10},
		{"负数 page 回退到 1", "-3", "10", 1, 10},
		{"page_size 为 0 回退到默认值", "1", "0", 1, 10},
		{"page_size 超限被截断", "1", "9999", 1, maxPageSize},
		{"非数字回退到默认值", "abc", "xyz", 1, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, pageSize := normalizePagination(tc.page, tc.size)
			assert.Equal(t, tc.wantPage, page)
			assert.Equal(t, tc.wantPageSize, pageSize)
		})
	}
}

func TestGetDownline_InvalidLevelParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// 非法 level 在进服务层之前就被拒绝，不会触发任何查库
	h := &Handler{networkService: service.NewNetworkService(nil)}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/network/downline?member_id=1&level=abc", nil)

	h.GetDownline(c)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestGetDownline_InvalidMemberIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handler{networkService: service.NewNetworkService(nil)}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/network/downline?member_id=abc", nil)

	h.GetDownline(c)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, response.CodeParamError, resp.Code)
}
