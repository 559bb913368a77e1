package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/craftcost/internal/xivdata"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndFetchList(t *testing.T) {
	db := testDB(t)

	id, err := db.CreateList("raid gear", "europe", true, []ListItem{
		{ItemID: 100, Quantity: 1},
		{ItemID: 200, Quantity: 3},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	list, err := db.ListByID(id)
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Equal(t, "raid gear", list.Name)
	assert.Equal(t, "europe", list.Region)
	assert.True(t, list.ShowCrystals)

	items, err := db.ListItems(id)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, xivdata.ItemID(100), items[0].ItemID)
	assert.Equal(t, 3, items[1].Quantity)
}

func TestListByIDMissing(t *testing.T) {
	db := testDB(t)

	list, err := db.ListByID("no-such-list")
	require.NoError(t, err)
	assert.Nil(t, list)
}

func TestListsOrderedNewestFirst(t *testing.T) {
	db := testDB(t)

	_, err := db.CreateList("first", "europe", false, nil)
	require.NoError(t, err)
	_, err = db.CreateList("second", "europe", false, nil)
	require.NoError(t, err)

	lists, err := db.Lists()
	require.NoError(t, err)
	require.Len(t, lists, 2)
}

func TestDeleteList(t *testing.T) {
	db := testDB(t)

	id, err := db.CreateList("doomed", "europe", false, []ListItem{{ItemID: 100, Quantity: 1}})
	require.NoError(t, err)

	require.NoError(t, db.DeleteList(id))

	list, err := db.ListByID(id)
	require.NoError(t, err)
	assert.Nil(t, list)

	items, err := db.ListItems(id)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOwnedCounters(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.SetOwned(101, 5))
	require.NoError(t, db.SetOwned(102, 2))
	require.NoError(t, db.SetOwned(101, 7)) // overwrite

	owned, err := db.OwnedQuantities()
	require.NoError(t, err)
	assert.Equal(t, map[xivdata.ItemID]int{101: 7, 102: 2}, owned)

	// Zero removes the counter outright.
	require.NoError(t, db.SetOwned(102, 0))
	owned, err = db.OwnedQuantities()
	require.NoError(t, err)
	assert.Equal(t, map[xivdata.ItemID]int{101: 7}, owned)
}
