package importer

import (
	"sort"
	"strings"
)

// Type is the per-domain configuration of the shared pipeline: where records
// land, how their natural key is extracted, and which coercion rules run in
// which order.
type Type struct {
	Name        string
	Collection  string
	Key         KeyFunc
	Normalizers []Normalizer
}

func keyFromID(record Record) string {
	return record.String("_id")
}

// Employees fall back to email when the source row carried no record id.
func employeeKey(record Record) string {
	if id := record.String("_id"); id != "" {
		return id
	}
	return strings.ToLower(record.String("email"))
}

var registry = map[string]Type{
	"clients": {
		Name:       "clients",
		Collection: "clients",
		Key:        keyFromID,
		Normalizers: []Normalizer{
			RenameRecordID,
			Phone("phone", "altPhone"),
			Date("startDate"),
			Bool("isActive"),
		},
	},
	"employees": {
		Name:       "employees",
		Collection: "employees",
		Key:        employeeKey,
		Normalizers: []Normalizer{
			RenameRecordID,
			Phone("phone"),
			Date("hireDate"),
			Bool("isScheduleActive"),
		},
	},
	"schedules": {
		Name:       "schedules",
		Collection: "schedules",
		Key:        keyFromID,
		Normalizers: []Normalizer{
			RenameRecordID,
			Date("startDate", "endDate"),
			Bool("notifyAssignees", "isScheduleActive"),
		},
	},
	"timesheets": {
		Name:       "timesheets",
		Collection: "timesheets",
		Key:        keyFromID,
		Normalizers: []Normalizer{
			RenameRecordID,
			Date("date", "clockIn", "clockOut"),
			Number("hours", "distance"),
			Bool("dumpWashout"),
			DriveTimeHours,
		},
	},
	"jha": {
		Name:       "jha",
		Collection: "jhaForms",
		Key:        keyFromID,
		Normalizers: []Normalizer{
			RenameRecordID,
			Date("date"),
			Bool("isSubmitted"),
		},
	},
	"djt": {
		Name:       "djt",
		Collection: "dailyJobTickets",
		Key:        keyFromID,
		Normalizers: []Normalizer{
			RenameRecordID,
			Date("date"),
			Number("hoursWorked"),
			Bool("isApproved"),
		},
	},
	"receipts": {
		Name:       "receipts",
		Collection: "receipts",
		Key:        keyFromID,
		Normalizers: []Normalizer{
			RenameRecordID,
			Date("date"),
			Number("amount"),
		},
	},
	"billingTickets": {
		Name:       "billingTickets",
		Collection: "billingTickets",
		Key:        keyFromID,
		Normalizers: []Normalizer{
			RenameRecordID,
			Date("ticketDate", "invoiceDate"),
			Number("quantity", "rate", "amount"),
			Bool("isInvoiced"),
		},
	},
	"potholeLogs": {
		Name:       "potholeLogs",
		Collection: "potholeLogs",
		Key:        keyFromID,
		Normalizers: []Normalizer{
			RenameRecordID,
			Date("date"),
			Number("length", "width", "depth"),
		},
	},
}

// Lookup resolves an import type by name.
func Lookup(name string) (Type, bool) {
	typ, ok := registry[name]
	return typ, ok
}

// TypeNames lists the registered import types in stable order.
func TypeNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collections lists the target collections in stable order.
func Collections() []string {
	seen := map[string]struct{}{}
	collections := make([]string, 0, len(registry))
	for _, typ := range registry {
		if _, ok := seen[typ.Collection]; ok {
			continue
		}
		seen[typ.Collection] = struct{}{}
		collections = append(collections, typ.Collection)
	}
	sort.Strings(collections)
	return collections
}

// CollectionFor maps a collection name back to the import type that feeds it.
func CollectionFor(collection string) (Type, bool) {
	for _, typ := range registry {
		if typ.Collection == collection {
			return typ, true
		}
	}
	return Type{}, false
}
