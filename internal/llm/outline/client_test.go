package outline_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epcsync/internal/domain"
	"epcsync/internal/llm"
	"epcsync/internal/llm/outline"
)

func TestParse_PreservesReadingOrder(t *testing.T) {
	record := outline.Parse("**A**\nX\n**B**\nY\nZ")

	require.Len(t, record.Groups, 2)
	assert.Equal(t, "A", record.Groups[0].Name)
	assert.Equal(t, []domain.Entry{{Name: "X"}}, record.Groups[0].Entries)
	assert.Equal(t, "B", record.Groups[1].Name)
	assert.Equal(t, []domain.Entry{{Name: "Y"}, {Name: "Z"}}, record.Groups[1].Entries)
}

func TestParse_PartCodesAndBilingualNames(t *testing.T) {
	text := "Cover page\n" +
		"**Frame System / 车架系统**\n" +
		"D C97259880020   Front Accessories 中保险杠...        ...4\n" +
		"## Dynamic System 动力系统\n" +
		"Engine Assembly / 发动机总成\n"

	record := outline.Parse(text)

	require.Len(t, record.Groups, 2)
	assert.Equal(t, "Frame System", record.Groups[0].Name)
	assert.Equal(t, "车架系统", record.Groups[0].SecondaryName)
	assert.Equal(t, domain.Entry{Code: "D C97259880020", Name: "Front Accessories", SecondaryName: "中保险杠"}, record.Groups[0].Entries[0])
	assert.Equal(t, "Dynamic System", record.Groups[1].Name)
	assert.Equal(t, "动力系统", record.Groups[1].SecondaryName)
	assert.Equal(t, "发动机总成", record.Groups[1].Entries[0].SecondaryName)
}

func TestSplitBilingual(t *testing.T) {
	p, s := outline.SplitBilingual("车架系统")
	assert.Equal(t, "车架系统", p)
	assert.Empty(t, s)

	p, s = outline.SplitBilingual("Brake")
	assert.Equal(t, "Brake", p)
	assert.Empty(t, s)
}

func TestClient_Complete_ReadsWrappedDocument(t *testing.T) {
	c := outline.NewClient()

	out, err := c.Complete(context.Background(), "ignored", "instructions\n"+llm.WrapDocument("**A**\nX"))

	require.NoError(t, err)
	var record domain.CatalogRecord
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	require.Len(t, record.Groups, 1)
	assert.Equal(t, "X", record.Groups[0].Entries[0].Name)
}
