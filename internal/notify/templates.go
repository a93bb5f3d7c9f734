package notify

import (
	"fmt"
	"html/template"
	"strings"
)

// BudgetAlertData fills the budget-alert template. Monetary fields are
// rounded to whole currency units by the monitor before rendering.
type BudgetAlertData struct {
	UserName       string
	AccountName    string
	PercentageUsed float64
	BudgetAmount   int64
	TotalExpenses  int64
}

// MonthlyReportData fills the monthly-report template.
type MonthlyReportData struct {
	UserName      string
	Month         string
	TotalIncome   string
	TotalExpenses string
	NetIncome     string
	ByCategory    map[string]string
	Insights      []string
}

var budgetAlertTmpl = template.Must(template.New("budget-alert").Parse(`
<h2>Budget Alert for {{.AccountName}}</h2>
<p>Hello {{.UserName}},</p>
<p>You have used <strong>{{printf "%.1f" .PercentageUsed}}%</strong> of your monthly budget.</p>
<ul>
  <li>Budget: {{.BudgetAmount}}</li>
  <li>Spent so far: {{.TotalExpenses}}</li>
  <li>Account: {{.AccountName}}</li>
</ul>
`))

var monthlyReportTmpl = template.Must(template.New("monthly-report").Parse(`
<h2>Monthly financial report for {{.Month}}</h2>
<p>Hello {{.UserName}},</p>
<ul>
  <li>Total income: {{.TotalIncome}}</li>
  <li>Total expenses: {{.TotalExpenses}}</li>
  <li>Net: {{.NetIncome}}</li>
</ul>
{{if .ByCategory}}<h3>Expenses by category</h3>
<ul>{{range $cat, $amt := .ByCategory}}<li>{{$cat}}: {{$amt}}</li>{{end}}</ul>{{end}}
<h3>Insights</h3>
<ul>{{range .Insights}}<li>{{.}}</li>{{end}}</ul>
`))

// renderTemplate produces the HTML body for a template type.
func renderTemplate(t TemplateType, data interface{}) (string, error) {
	var b strings.Builder
	switch t {
	case TemplateBudgetAlert:
		d, ok := data.(BudgetAlertData)
		if !ok {
			return "", fmt.Errorf("template %s: unexpected data type %T", t, data)
		}
		if err := budgetAlertTmpl.Execute(&b, d); err != nil {
			return "", err
		}
	case TemplateMonthlyReport:
		d, ok := data.(MonthlyReportData)
		if !ok {
			return "", fmt.Errorf("template %s: unexpected data type %T", t, data)
		}
		if err := monthlyReportTmpl.Execute(&b, d); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unknown template type %q", t)
	}
	return b.String(), nil
}
