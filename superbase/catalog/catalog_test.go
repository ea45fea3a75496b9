package catalog

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"superbase-golang/superbase/util"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"CUSTOMER.SBD":     {Data: []byte("schema")},
		"customer.sbf":     {Data: []byte("data")},
		"Orders.Sbf":       {Data: []byte("data")},
		"orders.sBd":       {Data: []byte("schema")},
		"lonely.sbf":       {Data: []byte("data")},
		"notes.txt":        {Data: []byte("ignored")},
		"archive.sbd":      {Data: []byte("schema")},
		"sub/nested.sbd":   {Data: []byte("schema")},
		"sub/nested.sbf":   {Data: []byte("data")},
		"sub/readme.sbdx":  {Data: []byte("ignored")},
		"sub/deeper/x.sbd": {Data: []byte("ignored")},
	}
}

func names(pairs []*Pair) []string {
	result := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		result = append(result, pair.Name)
	}
	return result
}

func TestFind(t *testing.T) {
	c, err := Find(testFS(), ".")
	require.NoError(t, err)

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, []string{"archive", "customer", "lonely", "orders"}, names(c.Pairs()))
	assert.Equal(t, []string{"customer", "orders"}, names(c.Complete()))

	customer, ok := c.Lookup("Customer")
	require.True(t, ok)
	assert.Equal(t, &Pair{Name: "customer", SchemaPath: "CUSTOMER.SBD", DataPath: "customer.sbf"}, customer)

	orders, ok := c.Lookup("orders")
	require.True(t, ok)
	assert.Equal(t, "orders.sBd", orders.SchemaPath)
	assert.Equal(t, "Orders.Sbf", orders.DataPath)

	_, ok = c.Lookup("notes")
	assert.False(t, ok)
}

func TestFindSubdirectory(t *testing.T) {
	c, err := Find(testFS(), "sub")
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	pair := c.Pairs()[0]
	assert.Equal(t, "nested", pair.Name)
	assert.Equal(t, "sub/nested.sbd", pair.SchemaPath)
	assert.Equal(t, "sub/nested.sbf", pair.DataPath)
	assert.NotNil(t, c.FS())
}

func TestFindEmpty(t *testing.T) {
	c, err := Find(fstest.MapFS{}, ".")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Pairs())
}

func TestValidate(t *testing.T) {
	c, err := Find(testFS(), ".")
	require.NoError(t, err)

	lonely, _ := c.Lookup("lonely")
	err = lonely.Validate()
	assert.True(t, util.IsPairingError(err))
	assert.Contains(t, err.Error(), ".sbd")

	archive, _ := c.Lookup("archive")
	err = archive.Validate()
	assert.True(t, util.IsPairingError(err))
	assert.Contains(t, err.Error(), ".sbf")

	customer, _ := c.Lookup("customer")
	assert.NoError(t, customer.Validate())
}

func TestAddFirstFileWins(t *testing.T) {
	c := New(fstest.MapFS{})
	assert.True(t, c.Add("A.SBF"))
	assert.False(t, c.Add("a.sbf"))
	assert.True(t, c.Add("a.sbd"))
	assert.False(t, c.Add("a.dbf"))

	pair, ok := c.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "A.SBF", pair.DataPath)
	assert.True(t, pair.Complete())
}
