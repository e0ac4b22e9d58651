package selector

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/roles"
)

var (
	controller = roles.Key{Role: roles.Controller}
	service    = roles.Key{Role: roles.Service}
	base       = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func entry(path string, key roles.Key, size int64, age int) Entry {
	return Entry{
		Path:    path,
		Size:    size,
		ModTime: base.Add(-time.Duration(age) * time.Hour),
		Ranked:  roles.Ranked{{Key: key, Confidence: 1}},
	}
}

func paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func newTestSelector() *Selector {
	return NewSelector(64, 0.25).WithLogger(logger.NewSilentLogger())
}

func TestSelect_OrdersTypicalNewestFirst(t *testing.T) {
	inv := Inventory{
		entry("src/Controller/AController.php", controller, 1200, 5),
		entry("src/Controller/BController.php", controller, 1100, 1),
		entry("src/Controller/CController.php", controller, 1300, 3),
		entry("src/Controller/DController.php", controller, 1250, 2),
		entry("src/Controller/Huge.php", controller, 90000, 0),
		entry("src/Service/Mailer.php", service, 1000, 0),
	}

	got, err := newTestSelector().Select(controller, inv, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"src/Controller/BController.php",
		"src/Controller/DController.php",
		"src/Controller/CController.php",
		"src/Controller/AController.php",
		"src/Controller/Huge.php",
	}, paths(got))
}

func TestSelect_ExcludesCandidates(t *testing.T) {
	inv := Inventory{
		entry("a.go", service, 500, 1),
		entry("b.go", service, 500, 2),
		entry("c.go", service, 500, 3),
	}

	got, err := newTestSelector().Select(service, inv, []string{"a.go"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.go", "c.go"}, paths(got))
}

func TestSelect_InsufficientReferences(t *testing.T) {
	inv := Inventory{entry("a.go", service, 500, 1)}

	_, err := newTestSelector().Select(controller, inv, nil, 3)
	var ire *InsufficientReferencesError
	require.ErrorAs(t, err, &ire)
	assert.Equal(t, controller, ire.Key)

	_, err = newTestSelector().Select(service, inv, []string{"a.go"}, 3)
	assert.ErrorAs(t, err, &ire)
}

func TestSelect_ClampsCount(t *testing.T) {
	var inv Inventory
	for i := 0; i < 10; i++ {
		inv = append(inv, entry(fmt.Sprintf("svc/%02d.go", i), service, 500, i))
	}
	sel := newTestSelector()

	tests := []struct {
		k    int
		want int
	}{
		{0, 5},
		{1, 3},
		{4, 4},
		{9, 5},
	}
	for _, tt := range tests {
		got, err := sel.Select(service, inv, nil, tt.k)
		require.NoError(t, err)
		assert.Len(t, got, tt.want, "k=%d", tt.k)
	}
}

func TestSelect_TinyFilesRankLast(t *testing.T) {
	inv := Inventory{
		entry("a.go", service, 10, 0),
		entry("b.go", service, 400, 5),
		entry("c.go", service, 420, 6),
	}

	got, err := newTestSelector().Select(service, inv, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.go", "c.go", "a.go"}, paths(got))
}

func TestSelect_TiesBreakOnPath(t *testing.T) {
	inv := Inventory{
		entry("c.go", service, 500, 1),
		entry("a.go", service, 500, 1),
		entry("b.go", service, 500, 1),
	}

	got, err := newTestSelector().Select(service, inv, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, paths(got))
}

func TestSelect_RespectsMinConfidence(t *testing.T) {
	mixed := Entry{
		Path: "internal/handlers/user_service.go",
		Size: 500,
		Ranked: roles.Ranked{
			{Key: controller, Confidence: 0.8},
			{Key: service, Confidence: 0.2},
		},
	}
	inv := Inventory{mixed}

	_, err := newTestSelector().Select(service, inv, nil, 3)
	assert.Error(t, err)

	got, err := NewSelector(64, 0.1).Select(service, inv, nil, 3)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, quantile(sorted, 0.25), 1e-9)
	assert.InDelta(t, 3.25, quantile(sorted, 0.75), 1e-9)
	assert.InDelta(t, 4, quantile(sorted, 1), 1e-9)
}

func TestFilterFeature(t *testing.T) {
	inv := Inventory{
		entry("src/Controller/OrderController.php", controller, 500, 1),
		entry("src/Controller/UserController.php", controller, 500, 1),
		entry("src/Controller/UserProfileController.php", controller, 500, 1),
	}

	got := FilterFeature(inv, "user")
	assert.ElementsMatch(t, []string{
		"src/Controller/UserController.php",
		"src/Controller/UserProfileController.php",
	}, paths(got))

	assert.Equal(t, inv, FilterFeature(inv, ""))
}

func TestClampCount(t *testing.T) {
	assert.Equal(t, MaxReferences, ClampCount(-1))
	assert.Equal(t, MinReferences, ClampCount(2))
	assert.Equal(t, 4, ClampCount(4))
	assert.Equal(t, MaxReferences, ClampCount(50))
}
