package exam

import "testing"

func TestDetectChanges(t *testing.T) {
	start := Date(2026, 1, 1)
	end := Date(2026, 2, 28)

	previous := Record{
		ExamName:         "RRB NTPC CBT 1",
		ConductingBody:   BodyRailway,
		ExamDate:         Date(2026, 6, 1),
		ApplicationStart: &start,
		ApplicationEnd:   &end,
		OfficialLink:     "https://rrb.example/notice",
		SourceURL:        "https://rrb.example",
	}

	t.Run("identical records", func(t *testing.T) {
		if changes := DetectChanges(previous, previous); len(changes) != 0 {
			t.Errorf("DetectChanges() = %v, want none", changes)
		}
	})

	t.Run("weaker re-scrape erases window", func(t *testing.T) {
		current := previous
		current.ApplicationStart = nil
		current.ApplicationEnd = nil
		current.OfficialLink = "https://mirror.example/rrb"

		changes := DetectChanges(previous, current)
		if len(changes) != 3 {
			t.Fatalf("DetectChanges() returned %d changes, want 3: %+v", len(changes), changes)
		}

		byField := make(map[string]FieldChange)
		for _, c := range changes {
			byField[c.Field] = c
		}

		if c := byField["application_end"]; !c.Erased() || c.OldValue != "2026-02-28" {
			t.Errorf("application_end change = %+v, want erased 2026-02-28", c)
		}
		if c := byField["official_link"]; c.Erased() || c.NewValue != "https://mirror.example/rrb" {
			t.Errorf("official_link change = %+v", c)
		}
		if _, ok := byField["source_url"]; ok {
			t.Error("unchanged source_url reported")
		}
	})
}
