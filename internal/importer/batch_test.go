package importer

import "testing"

func TestBuildBatchSkipAccounting(t *testing.T) {
	records := make([]Record, 0, 10)
	for i := 0; i < 8; i++ {
		records = append(records, Record{"_id": string(rune('A' + i)), "n": "v"})
	}
	records = append(records, Record{"n": "no key"}, Record{"n": "also no key"})

	ops, skipped := BuildBatch(records, keyFromID)
	if skipped != 2 {
		t.Fatalf("expected skipped = 2, got %d", skipped)
	}
	if len(ops) != 8 {
		t.Fatalf("expected 8 operations, got %d", len(ops))
	}
}

func TestBuildBatchCollapsesDuplicateKeys(t *testing.T) {
	records := []Record{
		{"_id": "E1", "firstName": "Jane", "phone": "111"},
		{"_id": "E1", "phone": "222"},
	}
	ops, skipped := BuildBatch(records, keyFromID)
	if skipped != 0 {
		t.Fatalf("expected no skips, got %d", skipped)
	}
	if len(ops) != 1 {
		t.Fatalf("expected duplicate keys to collapse to 1 op, got %d", len(ops))
	}
	if ops[0].Fields["phone"] != "222" {
		t.Fatalf("expected later row to win, got %v", ops[0].Fields["phone"])
	}
	if ops[0].Fields["firstName"] != "Jane" {
		t.Fatalf("expected earlier fields preserved, got %v", ops[0].Fields["firstName"])
	}
}

func TestEmployeeKeyFallsBackToEmail(t *testing.T) {
	if key := employeeKey(Record{"_id": "E1", "email": "jane@x.com"}); key != "E1" {
		t.Fatalf("expected record id to win, got %q", key)
	}
	if key := employeeKey(Record{"email": "Jane@X.com"}); key != "jane@x.com" {
		t.Fatalf("expected lowercased email fallback, got %q", key)
	}
	if key := employeeKey(Record{"firstName": "Jane"}); key != "" {
		t.Fatalf("expected empty key without id or email, got %q", key)
	}
}
