package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Normalizer is a pure per-record transformation applied after mapping and
// before batch building. Each import type composes its own chain; order only
// matters where one rule's output feeds another (dates before consumers,
// numbers before derived fields).
type Normalizer func(Record) Record

var truthy = map[string]struct{}{
	"Y": {}, "y": {}, "Yes": {}, "YES": {}, "true": {}, "TRUE": {}, "1": {},
}

// Bool coerces the named fields to booleans. Any value outside the accepted
// truthy set, including an absent field, becomes false.
func Bool(fields ...string) Normalizer {
	return func(record Record) Record {
		for _, field := range fields {
			value, _ := record[field].(string)
			_, isTrue := truthy[value]
			record[field] = isTrue
		}
		return record
	}
}

// Number coerces the named fields to float64, stripping currency symbols,
// commas and any other rune that is not a digit, '.' or '-'. Values that
// still fail to parse become 0. Absent fields stay absent.
func Number(fields ...string) Normalizer {
	return func(record Record) Record {
		for _, field := range fields {
			raw, ok := record[field].(string)
			if !ok {
				continue
			}
			record[field] = parseNumeric(raw)
		}
		return record
	}
}

func parseNumeric(raw string) float64 {
	var cleaned strings.Builder
	for _, ch := range raw {
		if (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' {
			cleaned.WriteRune(ch)
		}
	}
	parsed, err := strconv.ParseFloat(cleaned.String(), 64)
	if err != nil {
		return 0
	}
	return parsed
}

var (
	slashDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})(?:[ T](\d{1,2}):(\d{1,2})(?::(\d{1,2}))?)?$`)
	isoDateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Date rewrites the named fields to ISO-8601 UTC. M/D/YYYY with an optional
// H:MM[:SS] tail becomes YYYY-MM-DDTHH:MM:SS.000Z; a bare YYYY-MM-DD gets a
// midnight time appended. Anything else passes through unchanged and the
// consumer must tolerate it.
func Date(fields ...string) Normalizer {
	return func(record Record) Record {
		for _, field := range fields {
			raw, ok := record[field].(string)
			if !ok {
				continue
			}
			record[field] = RewriteDate(raw)
		}
		return record
	}
}

// RewriteDate applies the Date rule to a single value.
func RewriteDate(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if isoDateRe.MatchString(trimmed) {
		return trimmed + "T00:00:00.000Z"
	}
	match := slashDateRe.FindStringSubmatch(trimmed)
	if match == nil {
		return raw
	}
	month, _ := strconv.Atoi(match[1])
	day, _ := strconv.Atoi(match[2])
	year, _ := strconv.Atoi(match[3])
	hour, minute, second := 0, 0, 0
	if match[4] != "" {
		hour, _ = strconv.Atoi(match[4])
		minute, _ = strconv.Atoi(match[5])
	}
	if match[6] != "" {
		second, _ = strconv.Atoi(match[6])
	}
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.000Z", year, month, day, hour, minute, second)
}

// Phone reformats the named fields as (AAA) BBB-CCCC when the value carries
// exactly ten digits (or eleven with a leading 1). Anything else passes
// through unchanged.
func Phone(fields ...string) Normalizer {
	return func(record Record) Record {
		for _, field := range fields {
			raw, ok := record[field].(string)
			if !ok {
				continue
			}
			record[field] = formatPhone(raw)
		}
		return record
	}
}

func formatPhone(raw string) string {
	var digits strings.Builder
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		}
	}
	value := digits.String()
	if len(value) == 11 && value[0] == '1' {
		value = value[1:]
	}
	if len(value) != 10 {
		return raw
	}
	return fmt.Sprintf("(%s) %s-%s", value[:3], value[3:6], value[6:])
}

// RenameRecordID aligns externally sourced row ids with the internal primary
// key: recordId is copied to _id and removed.
func RenameRecordID(record Record) Record {
	if value, ok := record["recordId"]; ok {
		record["_id"] = value
		delete(record, "recordId")
	}
	return record
}

// driveTimeDivisor is the business rule for converting distance to paid
// drive-time hours. Do not fold the /100 into it; payroll audits both
// factors separately.
const driveTimeDivisor = 0.55

// DriveTimeHours derives hours from distance on DRIVE TIME timesheet rows
// that are not flagged as dump/washout. Requires Number("distance") and
// Bool("dumpWashout") to have run first.
func DriveTimeHours(record Record) Record {
	if record.String("type") != "DRIVE TIME" || record.Bool("dumpWashout") {
		return record
	}
	distance, ok := record.Float("distance")
	if !ok {
		return record
	}
	record["hours"] = distance / driveTimeDivisor / 100
	return record
}
