package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSiblingCode(t *testing.T) {
	cases := []struct {
		name     string
		parent   string
		siblings []string
		want     string
	}{
		{"no siblings numeric parent", "1120", nil, "1121"},
		{"no siblings keeps parent width", "2110", nil, "2111"},
		{"no siblings non-numeric parent", "AR", nil, "AR1"},
		{"max sibling plus one", "1120", []string{"1121", "1122", "1123"}, "1124"},
		{"unordered siblings", "1140", []string{"1146", "1141", "1144"}, "1147"},
		{"zero padded to widest sibling", "110", []string{"0111", "0112"}, "0113"},
		{"non-numeric siblings fall back to count", "AR", []string{"ARX", "ARY"}, "AR3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nextSiblingCode(tc.parent, tc.siblings))
		})
	}
}

func TestBuildTreeLevelsAndLeaves(t *testing.T) {
	tree := BuildTree()

	root, ok := tree["1000"]
	require.True(t, ok)
	assert.Equal(t, 1, root.Level)
	assert.False(t, root.Leaf)

	cash, ok := tree["1111"]
	require.True(t, ok)
	assert.Equal(t, 4, cash.Level)
	assert.True(t, cash.Leaf)
	assert.Equal(t, "1110", cash.Parent)
	assert.Equal(t, AccountTypeAsset, cash.Type)

	vatOut, ok := tree["2141"]
	require.True(t, ok)
	assert.True(t, vatOut.Leaf)
	assert.Equal(t, AccountTypeTax, vatOut.Type)
}

func TestBuildTreeParentsExist(t *testing.T) {
	tree := BuildTree()
	for code, node := range tree {
		if node.Parent == "" {
			continue
		}
		_, ok := tree[node.Parent]
		assert.True(t, ok, "account %s references missing parent %s", code, node.Parent)
	}
}

func TestTreeType(t *testing.T) {
	typ, ok := TreeType("5110")
	require.True(t, ok)
	assert.Equal(t, AccountTypeCogs, typ)

	typ, ok = TreeType(" 4111 ")
	require.True(t, ok)
	assert.Equal(t, AccountTypeRevenue, typ)

	_, ok = TreeType("9999")
	assert.False(t, ok)
}

func TestCashAndBankCodes(t *testing.T) {
	assert.True(t, IsCashCode("1111"))
	assert.True(t, IsCashCode(" 1113 "))
	assert.False(t, IsCashCode("1121"))
	assert.True(t, IsBankCode("1121"))
	assert.False(t, IsBankCode("1111"))
}

func TestZeroPad(t *testing.T) {
	assert.Equal(t, "0113", zeroPad(113, 4))
	assert.Equal(t, "1124", zeroPad(1124, 4))
	assert.Equal(t, "12345", zeroPad(12345, 4))
}
