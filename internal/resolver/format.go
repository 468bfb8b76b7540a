package resolver

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ashureev/vigil/internal/warehouse"
)

const (
	maxTableRows = 20
	maxCellRunes = 30
)

// Agent names attached to resolver responses.
const (
	AgentDataAnalyst = "Data Analyst"
	AgentHelp        = "VIGIL Orchestrator"
)

// SourceRiskPlanning is the warehouse label cited on every query result.
const SourceRiskPlanning = "RISK_PLANNING_DB"

// Format renders an outcome with rows as a markdown answer headed by the
// persona's emoji.
func Format(o Outcome, emoji string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s **Query Results**\n\n", emoji)
	if o.Explanation != "" {
		fmt.Fprintf(&b, "_%s_\n\n", o.Explanation)
	}

	rows := o.Rows
	switch {
	case len(rows) == 1 && len(rows[0]) == 1:
		f := rows[0][0]
		fmt.Fprintf(&b, "**%s**: %s\n", titleKey(f.Name), scalar(f.Value))
	case len(rows) > 0:
		writeTable(&b, rows)
		if len(rows) > maxTableRows {
			fmt.Fprintf(&b, "\nShowing first %d of %d results.\n", maxTableRows, len(rows))
		}
	}

	fmt.Fprintf(&b, "\n✅ **%d rows** | Source: %s", len(rows), o.Source())
	return b.String()
}

func writeTable(b *strings.Builder, rows []warehouse.Row) {
	cols := rows[0].Columns()
	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = titleKey(c)
	}
	b.WriteString("| " + strings.Join(titles, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---|", len(cols)) + "\n")

	for i, r := range rows {
		if i == maxTableRows {
			break
		}
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = Cell(r.Value(c))
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

// Cell renders one table value: floats as money or two decimals, NULL as
// "-", everything else truncated to 30 runes.
func Cell(v any) string {
	switch n := v.(type) {
	case nil:
		return "-"
	case float64:
		return money(n)
	case float32:
		return money(float64(n))
	case []byte:
		return truncate(string(n))
	default:
		return truncate(fmt.Sprint(n))
	}
}

func money(f float64) string {
	switch a := math.Abs(f); {
	case a >= 1e6:
		return fmt.Sprintf("$%.1fM", f/1e6)
	case a >= 1e3:
		return fmt.Sprintf("$%.0fK", f/1e3)
	default:
		return fmt.Sprintf("%.2f", f)
	}
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxCellRunes {
		return s
	}
	return string([]rune(s)[:maxCellRunes])
}

func scalar(v any) string {
	if v == nil {
		return "-"
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}

// titleKey turns ASSET_COUNT into "Asset Count".
func titleKey(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Help lists the kinds of questions the service answers. daysToSeason is
// the current fire season countdown.
func Help(daysToSeason int) string {
	return fmt.Sprintf(`I can help you with utility risk planning. Here's what I can answer:

🔥 **Fire Season** (%d days until June 1)
• "How many days until fire season?"
• "Show me Tier 3 fire district assets"
• "What is our fire season readiness?"

🌲 **Vegetation Management**
• "Show vegetation compliance by region"
• "What encroachments need priority attention?"
• "List non-compliant GO95 clearances"

⚡ **Asset Health**
• "Show me high-risk assets"
• "Which poles need replacement?"
• "What is the average asset health score?"

📋 **Work Orders**
• "Show work order backlog by priority"
• "What vegetation work is planned?"

🔍 **Hidden Discovery**
• "Show me the Water Treeing pattern"
• "Find rain-correlated voltage dips"
• "Which underground cables are at risk?"
`, daysToSeason)
}
