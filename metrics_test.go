package habanero_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"

	"github.com/habanero-go/habanero"
)

func counter(scope tally.TestScope, name string) int64 {
	for _, c := range scope.Snapshot().Counters() {
		if c.Name() == name {
			return c.Value()
		}
	}
	return 0
}

func TestCommitMetrics(t *testing.T) {
	ctx := context.Background()
	cd := customerClass()
	scope := tally.NewTestScope("habanero", nil)
	db := openSQLite(t, memoryDSN(t), &habanero.Config{MetricsScope: scope})
	require.NoError(t, db.Register(cd))
	require.NoError(t, db.Migrator().CreateTables(ctx, cd))

	bo := newObject(t, db, cd, map[string]interface{}{"CustomerCode": "C1", "Name": "One"})
	require.NoError(t, db.Save(ctx, bo))
	require.NoError(t, bo.SetPropertyValue("Name", "Uno"))
	require.NoError(t, db.Save(ctx, bo))
	require.Error(t, db.Save(ctx, newObject(t, db, cd, map[string]interface{}{"CustomerCode": "C2"})))

	_, err := db.BusinessObjectLoader().GetBusinessObjectByID(ctx, cd, "C1")
	require.NoError(t, err)
	_, err = db.BusinessObjectLoader().GetBusinessObjectByID(ctx, cd, "C9")
	require.ErrorIs(t, err, habanero.ErrNotFound)

	assert.Equal(t, int64(2), counter(scope, "habanero.commit.success"))
	assert.Equal(t, int64(1), counter(scope, "habanero.commit.fail"))
	assert.Equal(t, int64(1), counter(scope, "habanero.objects.inserted"))
	assert.Equal(t, int64(1), counter(scope, "habanero.objects.updated"))
	assert.Equal(t, int64(2), counter(scope, "habanero.statements_executed"))
	assert.Equal(t, int64(1), counter(scope, "habanero.identity_map.hit"))
	assert.Equal(t, int64(1), counter(scope, "habanero.identity_map.miss"))

	var durations int
	for _, timer := range scope.Snapshot().Timers() {
		if timer.Name() == "habanero.commit.duration" {
			durations = len(timer.Values())
		}
	}
	assert.Equal(t, 3, durations)
}
