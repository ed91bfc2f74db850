package storyboard

// Totals are derived from the scenes on every read and never stored.
type Totals struct {
	SceneCount      int `json:"scene_count"`
	ShotCount       int `json:"shot_count"`
	DurationSeconds int `json:"total_duration_seconds"`
}

// Aggregate sums shot counts and durations; unset durations count as the default.
func Aggregate(scenes []Scene) Totals {
	t := Totals{SceneCount: len(scenes)}
	for _, scene := range scenes {
		t.ShotCount += len(scene.Shots)
		for _, shot := range scene.Shots {
			t.DurationSeconds += shot.Duration()
		}
	}
	return t
}
