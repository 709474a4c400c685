package data

import (
	"context"
	"testing"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/metering"
	"github.com/fpawel/gasflow/internal/zfactor"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveGetLast(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := GetLast(ctx, db, "default", KindGas)
	require.Error(t, err)
	assert.True(t, merry.Is(err, ErrNotFound))
	assert.Equal(t, 404, merry.HTTPCode(err))

	in := metering.Input{LineFlow: 1000, FlowUnit: "m3h", Pressure: 50, PressureUnit: "bar",
		TemperatureC: 20, ZMode: "manual", ManualZ: 0.95, Preset: "15C"}
	res, err := metering.Standardize(ctx, zfactor.New(), in)
	require.NoError(t, err)

	require.NoError(t, SaveLast(ctx, db, "default", KindGas, in, res))

	in2 := in
	in2.ManualZ = 0.9
	res2, err := metering.Standardize(ctx, zfactor.New(), in2)
	require.NoError(t, err)
	require.NoError(t, SaveLast(ctx, db, "default", KindGas, in2, res2))

	x, err := GetLast(ctx, db, "default", KindGas)
	require.NoError(t, err)
	assert.Equal(t, "default", x.SessionKey)
	assert.Equal(t, KindGas, x.Kind)
	assert.False(t, x.SavedAt.IsZero())

	var gotIn metering.Input
	var gotRes metering.Result
	require.NoError(t, x.Decode(&gotIn, &gotRes))
	assert.Equal(t, in2, gotIn)
	assert.Equal(t, res2, gotRes)

	_, err = GetLast(ctx, db, "other", KindGas)
	assert.True(t, merry.Is(err, ErrNotFound))
	_, err = GetLast(ctx, db, "default", KindCTL)
	assert.True(t, merry.Is(err, ErrNotFound))
}

func TestListHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, SaveLast(ctx, db, "s", KindCTL, map[string]int{"n": i}, map[string]int{"r": i * 10}))
	}
	xs, err := ListHistory(ctx, db, 3)
	require.NoError(t, err)
	require.Len(t, xs, 3)
	assert.JSONEq(t, `{"n":5}`, string(xs[0].Input))
	assert.JSONEq(t, `{"r":30}`, string(xs[2].Result))
	assert.Greater(t, xs[0].ID, xs[1].ID)

	x, err := GetLast(ctx, db, "s", KindCTL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":5}`, string(x.Input))
}
