package query

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func contextFor(rawQuery string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/forms?"+rawQuery, nil)
	return c
}

func TestParseQueryParams_Defaults(t *testing.T) {
	params := ParseQueryParams(contextFor(""))

	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 0, params.Limit)
	assert.False(t, params.Paginated())
	assert.Equal(t, "updated_at", params.Sort.Field)
	assert.Equal(t, "desc", params.Sort.Order)
	assert.Empty(t, params.Filters)
}

func TestParseQueryParams_Values(t *testing.T) {
	params := ParseQueryParams(contextFor("status=Submitted&filters%5Bpackage%5D=Basic&search=%20doe%20&page=2&limit=500&sort%5Bfield%5D=client_name&sort%5Border%5D=ASC"), "status")

	assert.Equal(t, 2, params.Page)
	assert.Equal(t, 100, params.Limit)
	assert.True(t, params.Paginated())
	assert.Equal(t, "doe", params.Search)
	assert.Equal(t, map[string]string{"status": "Submitted", "package": "Basic"}, params.Filters)
	assert.Equal(t, SortParams{Field: "client_name", Order: "asc"}, params.Sort)
}

func TestParseQueryParams_PlainFilterNeedsOptIn(t *testing.T) {
	params := ParseQueryParams(contextFor("status=Submitted"))
	assert.NotContains(t, params.Filters, "status")
}

func TestBuildPaginationResponse(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		limit int
		total int64
		want  PaginationResponse
	}{
		{"unpaginated", 1, 0, 7, PaginationResponse{Page: 1, Limit: 7, Total: 7, TotalPages: 1}},
		{"first page", 1, 3, 7, PaginationResponse{Page: 1, Limit: 3, Total: 7, TotalPages: 3, HasNext: true}},
		{"last page", 3, 3, 7, PaginationResponse{Page: 3, Limit: 3, Total: 7, TotalPages: 3, HasPrev: true}},
		{"empty", 1, 10, 0, PaginationResponse{Page: 1, Limit: 10, Total: 0, TotalPages: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildPaginationResponse(tt.page, tt.limit, tt.total))
		})
	}
}

func TestLikeEscaper(t *testing.T) {
	assert.Equal(t, `100\%\_off`, likeEscaper.Replace("100%_off"))
	assert.Equal(t, `a\\b`, likeEscaper.Replace(`a\b`))
	assert.Equal(t, "plain", likeEscaper.Replace("plain"))
}
