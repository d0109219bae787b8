package query

import (
	"testing"

	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

func TestParseAndOr(t *testing.T) {
	clauses, err := ParseWhere("Amt > 15 AND Id < 3 OR Id = 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Clause{
		{Term: TermAnd, Field: "Amt", Alias: ">", Operand: value.Int(15)},
		{Term: TermAnd, Field: "Id", Alias: "<", Operand: value.Int(3)},
		{Term: TermOr, Field: "Id", Alias: "=", Operand: value.Int(3)},
	}
	if len(clauses) != len(want) {
		t.Fatalf("expected %d clauses, got %v", len(want), clauses)
	}
	for i := range want {
		if clauses[i].String() != want[i].String() {
			t.Errorf("clause %d: expected %v, got %v", i, want[i], clauses[i])
		}
	}
}

func TestParseNamedConditions(t *testing.T) {
	clauses, err := ParseWhere(`Name startswith "ab" AND Id In (1, 2, 3) AND Amt Between 10 AND 20.5 OR Amt between 1..2`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clauses) != 4 {
		t.Fatalf("expected 4 clauses, got %v", clauses)
	}
	if clauses[0].Alias != AliasStartsWith || !value.Equal(clauses[0].Operand, value.Text("ab")) {
		t.Errorf("unexpected clause 0: %v", clauses[0])
	}
	if !value.Equal(clauses[1].Operand, value.List(value.Int(1), value.Int(2), value.Int(3))) {
		t.Errorf("unexpected In operand: %v", clauses[1].Operand)
	}
	if !value.Equal(clauses[2].Operand, value.List(value.Int(10), value.Real(20.5))) {
		t.Errorf("unexpected Between operand: %v", clauses[2].Operand)
	}
	if clauses[3].Term != TermOr || !value.Equal(clauses[3].Operand, value.List(value.Int(1), value.Int(2))) {
		t.Errorf("unexpected clause 3: %v", clauses[3])
	}
}

func TestParseLiterals(t *testing.T) {
	clauses, err := ParseWhere("Paid = true AND Note = null AND Name = bare")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !value.Equal(clauses[0].Operand, value.Bool(true)) {
		t.Errorf("expected true, got %v", clauses[0].Operand)
	}
	if !clauses[1].Operand.IsNull() {
		t.Errorf("expected null, got %v", clauses[1].Operand)
	}
	if !value.Equal(clauses[2].Operand, value.Text("bare")) {
		t.Errorf("expected bare, got %v", clauses[2].Operand)
	}
}

func TestParseEmpty(t *testing.T) {
	clauses, err := ParseWhere("   ")
	if err != nil || clauses != nil {
		t.Fatalf("expected no clauses, got %v, %v", clauses, err)
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{
		"Amt >",
		"Amt Frobnicate 3",
		"Id In (1, 2",
		"Amt Between 1 2",
		"Amt > 1 Id < 3",
		"> 3",
	}
	for _, input := range inputs {
		if _, err := ParseWhere(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestApplyWhere(t *testing.T) {
	b := NewBuilder(rowType)
	if err := b.ApplyWhere("amt > 15 AND id < 3 OR id = 3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conds := b.Build().Conditions()
	if len(conds) != 3 {
		t.Fatalf("expected 3 conditions, got %d", len(conds))
	}
	if conds[0].Field.Name != "Amt" || !value.Equal(conds[0].Operand, value.Real(15)) {
		t.Errorf("unexpected first condition: %v", conds[0])
	}
	if conds[2].Term != TermOr {
		t.Errorf("expected OR term, got %v", conds[2].Term)
	}
}
