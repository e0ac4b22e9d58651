package pattern

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/norms/pkg/roles"
)

var controller = roles.Key{Role: roles.Controller}

func namingRecord(path string, style NamingStyle) Record {
	return Record{Path: path, Role: controller, Naming: &Naming{Style: style, Fraction: 1, Sampled: 1, Line: 3}}
}

func TestAggregate_Empty(t *testing.T) {
	set := Aggregate(nil)

	assert.Equal(t, 0, set.SampleSize)
	assert.Empty(t, set.References)
	for _, field := range append(ComparedFields, FieldParameterCasing, FieldReturnTypes) {
		conv := set.Field(field)
		assert.Equal(t, Unknown, conv.Status, field)
		assert.False(t, conv.Known(), field)
	}
}

func TestAggregate_DominantNaming(t *testing.T) {
	records := []Record{
		namingRecord("src/Controller/AController.php", PascalCase),
		namingRecord("src/Controller/BController.php", PascalCase),
		namingRecord("src/Controller/CController.php", PascalCase),
		namingRecord("src/Controller/DController.php", PascalCase),
		namingRecord("src/Controller/e_controller.php", SnakeCase),
	}

	set := Aggregate(records)

	assert.Equal(t, 5, set.SampleSize)
	assert.Equal(t, controller, set.Role)
	assert.Equal(t, Resolved, set.Naming.Status)
	assert.Equal(t, string(PascalCase), set.Naming.Value)
	assert.InDelta(t, 0.8, set.Naming.Support, 1e-9)
	assert.Equal(t, 5, set.Naming.Observed)
	assert.Nil(t, set.Naming.Alternatives)
}

func TestAggregate_TwoDisagreeingReferences(t *testing.T) {
	records := []Record{
		{Path: "a.php", Errors: &ErrorHandling{Idiom: ThrowBased}},
		{Path: "b.php", Errors: &ErrorHandling{Idiom: ResultBased}},
	}

	set := Aggregate(records)

	assert.False(t, set.ErrorIdiom.Known())
	assert.Equal(t, Competing, set.ErrorIdiom.Status)
	assert.Equal(t, []Alternative{
		{Value: string(ResultBased), Support: 0.5},
		{Value: string(ThrowBased), Support: 0.5},
	}, set.ErrorIdiom.Alternatives)
}

func TestAggregate_SingleObservationIsUnknown(t *testing.T) {
	records := []Record{
		{Path: "a.go", Dependency: &Dependency{Pattern: ConstructorInjection, Occurrences: 2}},
		{Path: "b.go"},
		{Path: "c.go"},
	}

	set := Aggregate(records)

	assert.Equal(t, Unknown, set.Dependency.Status)
	assert.Equal(t, 1, set.Dependency.Observed)
	assert.Equal(t, 3, set.SampleSize)
}

func TestConsensus(t *testing.T) {
	tests := []struct {
		name       string
		values     []string
		wantStatus Status
		wantValue  string
		wantAlts   int
	}{
		{"clear majority", []string{"a", "a", "a", "b"}, Resolved, "a", 0},
		{"near tie within margin", []string{"a", "a", "a", "a", "a", "b", "b", "b", "b", "c"}, Competing, "a", 2},
		{"gap just above margin", []string{"a", "a", "a", "b", "b", "c", "c", "d"}, Resolved, "a", 0},
		{"empty values ignored", []string{"a", "", "a", ""}, Resolved, "a", 0},
		{"all empty", []string{"", ""}, Unknown, "", 0},
		{"three way tie", []string{"c", "b", "a"}, Competing, "a", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := consensus(tt.values)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantValue, got.Value)
			assert.Len(t, got.Alternatives, tt.wantAlts)
		})
	}
}

func TestConvention_Accepts(t *testing.T) {
	resolved := Convention{Status: Resolved, Value: "PascalCase", Support: 0.9}
	assert.True(t, resolved.Accepts("PascalCase"))
	assert.False(t, resolved.Accepts("snake_case"))
	assert.False(t, resolved.Accepts(""))

	competing := Convention{Status: Competing, Value: "a", Alternatives: []Alternative{{"a", 0.5}, {"b", 0.5}}}
	assert.True(t, competing.Accepts("b"))
	assert.False(t, competing.Accepts("c"))
}

func TestAggregate_OrderIndependent(t *testing.T) {
	records := []Record{
		{Path: "a.ts", Naming: &Naming{Style: CamelCase}, Imports: &ImportStyle{Sorted: true, Grouped: true}, Errors: &ErrorHandling{Idiom: ThrowBased, Types: []string{"HttpError"}}},
		{Path: "b.ts", Naming: &Naming{Style: CamelCase}, Imports: &ImportStyle{Sorted: false, Grouped: true}, Errors: &ErrorHandling{Idiom: ThrowBased, Types: []string{"HttpError", "ValidationError"}}},
		{Path: "c.ts", Naming: &Naming{Style: PascalCase}, Imports: &ImportStyle{Sorted: true, Grouped: true}, Errors: &ErrorHandling{Idiom: CallbackBased}},
		{Path: "d.ts", Naming: &Naming{Style: CamelCase}, Dependency: &Dependency{Pattern: Factory}, Signatures: []Signature{{Name: "get", ParamCasing: CamelCase, HasReturnType: true}}},
		{Path: "e.ts", Dependency: &Dependency{Pattern: Factory}, Signatures: []Signature{{Name: "put", ParamCasing: CamelCase}}},
	}

	want := Aggregate(records)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 25; i++ {
		shuffled := append([]Record(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		if diff := cmp.Diff(want, Aggregate(shuffled)); diff != "" {
			t.Fatalf("aggregate depends on order (-want +got):\n%s", diff)
		}
	}
}

func TestAggregate_ErrorVocabulary(t *testing.T) {
	records := []Record{
		{Path: "a.php", Errors: &ErrorHandling{Idiom: ThrowBased, Types: []string{"NotFoundHttpException", "AccessDeniedException"}}},
		{Path: "b.php", Errors: &ErrorHandling{Idiom: ThrowBased, Types: []string{"NotFoundHttpException"}}},
		{Path: "c.php"},
	}

	set := Aggregate(records)
	require.Len(t, set.ErrorVocabulary, 2)
	assert.Equal(t, VocabularyEntry{Name: "NotFoundHttpException", Support: 1}, set.ErrorVocabulary[0])
	assert.Equal(t, VocabularyEntry{Name: "AccessDeniedException", Support: 0.5}, set.ErrorVocabulary[1])
}

func TestRecord_ValueAndLine(t *testing.T) {
	r := Record{
		Naming:     &Naming{Style: SnakeCase, Line: 4},
		Imports:    &ImportStyle{Sorted: true, Grouped: false, Wildcard: true, Line: 2},
		Dependency: &Dependency{Pattern: StaticImport, Line: 9},
		Errors:     &ErrorHandling{Types: []string{"ValueError"}, Line: 12},
		Signatures: []Signature{
			{Name: "a", Line: 20, ParamCasing: SnakeCase, HasReturnType: true},
			{Name: "b", Line: 30, ParamCasing: SnakeCase},
			{Name: "c", Line: 40, ParamCasing: CamelCase},
		},
	}

	assert.Equal(t, "snake_case", r.Value(FieldNaming))
	assert.Equal(t, "sorted, interleaved, wildcard", r.Value(FieldImports))
	assert.Equal(t, "static-import", r.Value(FieldDependency))
	assert.Equal(t, "", r.Value(FieldErrorIdiom), "types without an idiom give no idiom observation")
	assert.Equal(t, "snake_case", r.Value(FieldParameterCasing))
	assert.Equal(t, "omitted", r.Value(FieldReturnTypes))

	assert.Equal(t, 4, r.Line(FieldNaming))
	assert.Equal(t, 2, r.Line(FieldImports))
	assert.Equal(t, 9, r.Line(FieldDependency))
	assert.Equal(t, 12, r.Line(FieldErrorIdiom))
	assert.Equal(t, 20, r.Line(FieldReturnTypes))

	var empty Record
	for _, field := range ComparedFields {
		assert.Equal(t, "", empty.Value(field))
		assert.Equal(t, 0, empty.Line(field))
	}
}
