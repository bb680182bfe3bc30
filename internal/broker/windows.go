package broker

import "time"

// inWidenedWindow reports whether t falls inside the widened spread
// band: the pre-open window (starting earlier on Mondays) or the
// post-close window. Evaluated in the profile timezone.
func (m *CostModel) inWidenedWindow(t time.Time) bool {
	local := t.In(m.profile.Location())
	minutes := local.Hour()*60 + local.Minute()

	w := m.profile.Widened

	preStart := w.PreOpenDefaultStart
	if local.Weekday() == time.Monday {
		preStart = w.PreOpenMondayStart
	}
	if preStart.Minutes() <= minutes && minutes < w.PreOpenEnd.Minutes() {
		return true
	}

	return w.PostClose.Contains(minutes)
}

// inMaintenanceWindow reports whether t falls inside a daily or weekly
// maintenance window. Monday has its own daily table.
func (m *CostModel) inMaintenanceWindow(t time.Time) bool {
	local := t.In(m.profile.Location())
	minutes := local.Hour()*60 + local.Minute()
	weekday := local.Weekday()

	daily := m.profile.Maintenance.DailyTueSun
	if weekday == time.Monday {
		daily = m.profile.Maintenance.DailyMonday
	}
	for _, w := range daily {
		if w.Contains(minutes) {
			return true
		}
	}

	for _, ww := range m.profile.Maintenance.Weekly {
		if ww.Weekday == weekday && ww.Window.Contains(minutes) {
			return true
		}
	}

	return false
}
