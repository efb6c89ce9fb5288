package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"

	"github.com/sandeepkv93/coachd/internal/views"
)

func (m *Model) refreshAnalytics() {
	m.report = m.app.Report()
	m.reportStale = false
	rows := make([]table.Row, 0, len(m.report.Goals))
	for _, g := range m.report.Goals {
		rows = append(rows, table.Row{
			g.Title,
			fmt.Sprintf("%d/%d", g.TasksCompleted, g.TotalTasks),
			fmt.Sprintf("%d%%", g.Progress),
			fmt.Sprintf("%dd", g.Streak),
			fmt.Sprintf("%+d%%", g.Trend),
		})
	}
	m.analyticsTable.SetRows(rows)
}

func (m Model) renderAnalyticsView() string {
	week := m.report.Week
	days := make([]views.DayData, 0, len(week.Days))
	for _, d := range week.Days {
		days = append(days, views.DayData{
			Label:     d.Day.Format("Mon 01/02"),
			Completed: d.Completed,
			Total:     d.Total,
		})
	}
	return views.RenderAnalyticsPanel(views.AnalyticsPanelData{
		TableView:      m.analyticsTable.View(),
		Days:           days,
		WeekCompleted:  week.Completed,
		WeekTotal:      week.Total,
		CompletionRate: week.CompletionRate,
		BestStreak:     week.BestStreak,
		RateView:       m.goalProgress.ViewAs(float64(week.CompletionRate) / 100),
	})
}

func (m Model) renderInsightsPane() string {
	insights := make([]views.InsightData, 0, len(m.report.Insights))
	for _, in := range m.report.Insights {
		insights = append(insights, views.InsightData{Kind: string(in.Kind), Text: in.Text})
	}
	return views.RenderInsightsPanel(insights)
}
