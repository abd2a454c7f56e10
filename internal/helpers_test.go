package internal

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"mymodels-api/apiv1"
	"mymodels-api/meta"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Widget is a minimal resource used to exercise the generic code with a
// type other than MyModel.
type Widget struct {
	meta.BaseResource
	Name  string `gorm:"not null" json:"name" binding:"required"`
	Color string `json:"color"`
}

// setupTestDB creates a temporary SQLite database with the test schemas.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), GormConfig(zap.NewNop()))
	require.NoError(t, err)

	err = db.AutoMigrate(&apiv1.MyModel{}, &Widget{})
	require.NoError(t, err)

	var tables []string
	err = db.Raw("SELECT name FROM sqlite_master WHERE type='table'").Scan(&tables).Error
	require.NoError(t, err)
	require.Contains(t, tables, "my_models")
	require.Contains(t, tables, "widgets")

	t.Cleanup(func() {
		if err := CloseDatabase(db); err != nil {
			t.Logf("Failed to close database connection: %v", err)
		}
	})
	return db
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	return engine
}

func doRequest(engine http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func doRequestWith(engine http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}
