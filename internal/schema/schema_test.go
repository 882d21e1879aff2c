package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikisoft/rosterval/internal/domain"
)

func TestDefault_LoadsEmbeddedRegistryWithoutPanicking(t *testing.T) {
	assert.NotPanics(t, func() {
		reg := Default()
		assert.NotEmpty(t, reg.All())
	})
}

func TestNormalize_CollapsesWhitespaceAndPunctuation(t *testing.T) {
	assert.Equal(t, "employeeid", Normalize("  Employee-ID  "))
	assert.Equal(t, Normalize("사원 번호"), Normalize("사원_번호"))
}

func TestResolve_CanonicalAndAlias(t *testing.T) {
	reg := Default()

	assert.Equal(t, "이름", reg.Resolve("성명"))
	assert.Equal(t, "이름", reg.Resolve("이름"))
	assert.Equal(t, "", reg.Resolve("전혀 관련 없는 헤더"))
}

func TestLoad_DuplicateCanonical_IsError(t *testing.T) {
	data := []byte(`
fields:
  - canonical: 이름
    type: string
  - canonical: 이름
    type: string
`)
	_, err := Load(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate canonical name")
}

func TestLoad_EmptyCanonical_IsError(t *testing.T) {
	data := []byte(`
fields:
  - canonical: ""
    type: string
`)
	_, err := Load(data)
	require.Error(t, err)
}

func TestLoad_AliasCollision_FirstDeclaredWins(t *testing.T) {
	data := []byte(`
fields:
  - canonical: A
    type: string
    aliases: [dup]
  - canonical: B
    type: string
    aliases: [dup]
`)
	reg, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, "A", reg.Resolve("dup"))
}

func TestFields_FiltersBySheetAffinity(t *testing.T) {
	data := []byte(`
fields:
  - canonical: active_only
    type: string
    sheet: 재직자
  - canonical: everywhere
    type: string
    sheet: all
`)
	reg, err := Load(data)
	require.NoError(t, err)

	active := reg.Fields(domain.SheetActive)
	var names []string
	for _, f := range active {
		names = append(names, f.Canonical)
	}
	assert.Contains(t, names, "active_only")
	assert.Contains(t, names, "everywhere")

	retired := reg.Fields(domain.SheetRetired)
	names = nil
	for _, f := range retired {
		names = append(names, f.Canonical)
	}
	assert.NotContains(t, names, "active_only")
	assert.Contains(t, names, "everywhere")
}

func TestRequired_OnlyRequiredFieldsForSheet(t *testing.T) {
	data := []byte(`
fields:
  - canonical: must_have
    type: string
    sheet: all
    required: true
  - canonical: optional
    type: string
    sheet: all
    required: false
`)
	reg, err := Load(data)
	require.NoError(t, err)

	required := reg.Required(domain.SheetActive)
	assert.Contains(t, required, "must_have")
	assert.NotContains(t, required, "optional")
}

func TestFind_UnknownCanonical_ReturnsFalse(t *testing.T) {
	reg := Default()
	_, ok := reg.Find("존재하지않는필드")
	assert.False(t, ok)
}
