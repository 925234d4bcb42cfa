package extract

import (
	"bytes"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/paddock-labs/equinet/internal/model"
)

// Extract applies a kind plan to a page body and returns raw records in row
// order. Zero matching rows is not an error: absence of data is not a fetch
// failure. A record is emitted only when at least one field is non-empty.
func Extract(plan *Plan, kind model.RecordKind, body []byte, fetchedAt time.Time) ([]model.RawRecord, error) {
	kp := plan.ForKind(kind)
	if kp == nil {
		return nil, eris.Errorf("extract: source %s has no plan for kind %s", plan.Source, kind)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "extract: parse %s body", plan.Source)
	}

	rows := selectRows(doc, kp)
	if rows == nil {
		return nil, nil
	}

	var records []model.RawRecord
	rows.Each(func(_ int, row *goquery.Selection) {
		fields := make(map[string]string, len(kp.Fields))
		nonEmpty := false
		for i := range kp.Fields {
			val := extractField(row, &kp.Fields[i])
			fields[kp.Fields[i].Name] = val
			if val != "" {
				nonEmpty = true
			}
		}
		if !nonEmpty {
			return
		}
		records = append(records, model.RawRecord{
			Source:    plan.Source,
			Kind:      kind,
			FetchedAt: fetchedAt,
			Fields:    fields,
		})
	})

	return records, nil
}

// selectRows tries row selectors in order; the first yielding at least one
// row wins.
func selectRows(doc *goquery.Document, kp *KindPlan) *goquery.Selection {
	for _, sel := range kp.RowSelectors {
		rows := doc.Find(sel)
		if rows.Length() > 0 {
			return rows
		}
	}
	return nil
}

func extractField(row *goquery.Selection, rule *FieldRule) string {
	target := row
	if rule.Selector != "" {
		target = row.Find(rule.Selector).First()
	}

	var raw string
	if rule.Attr != "" {
		raw, _ = target.Attr(rule.Attr)
	} else {
		raw = target.Text()
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || rule.re == nil {
		return raw
	}

	m := rule.re.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	if len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[0])
}
