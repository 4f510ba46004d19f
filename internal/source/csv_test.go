package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func tracked() registry.SectorSet {
	return registry.NewSectorSet(registry.DefaultTrackedSectors())
}

func TestCSVSource_ClassifiesAndFilters(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `fhrs_id,business_name,business_type,local_authority,postcode
100,Betty's Baps,Mobile caterer,Leeds,LS1 1AA
101,St Mary's,School/college/university,Leeds,LS2 2BB
102,The Crown,Pub/bar/nightclub,York,YO1 1CC
`)

	records, err := NewCSVSource(path, tracked()).Records(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2, "untracked school row must be dropped")

	assert.Equal(t, "100", records[0].ID)
	assert.Equal(t, registry.SectorMobile, records[0].Sector)
	assert.Equal(t, "LS1 1AA", records[0].Postcode)

	assert.Equal(t, registry.SectorPubBar, records[1].Sector)
	assert.Equal(t, "York", records[1].Authority)
}

func TestCSVSource_MalformedRowsNormalizedNotFatal(t *testing.T) {
	t.Parallel()

	// Second row has no id and no authority; third is short.
	path := writeFile(t, `fhrs_id,business_name,business_type,local_authority
1,A,Takeaway/sandwich shop,Leeds
,B,Takeaway/sandwich shop,
2,C,Takeaway/sandwich shop
`)

	records, err := NewCSVSource(path, tracked()).Records(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Empty(t, records[1].ID)
	assert.Empty(t, records[1].Authority)
	assert.Empty(t, records[2].Authority)
}

func TestCSVSource_MissingRequiredColumn(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "business_name,local_authority\nA,Leeds\n")

	_, err := NewCSVSource(path, tracked()).Records(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestCSVSource_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv"), tracked()).Records(context.Background())

	assert.Error(t, err)
}

func TestCSVSource_EmptyFile(t *testing.T) {
	t.Parallel()

	records, err := NewCSVSource(writeFile(t, ""), tracked()).Records(context.Background())

	require.NoError(t, err)
	assert.Empty(t, records)
}
