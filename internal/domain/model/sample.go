package model

// MetricsSample holds the per-frame signal produced by the vision frontend.
// Angles are in degrees; eye aspect ratios are roughly in [0, 0.6].
type MetricsSample struct {
	FacePresent bool    `json:"face_present"`
	Yaw         float64 `json:"yaw"`
	Pitch       float64 `json:"pitch"`
	Roll        float64 `json:"roll"`
	EARLeft     float64 `json:"ear_left"`
	EARRight    float64 `json:"ear_right"`
}

// Absent returns the sample used when no face was found.
func Absent() MetricsSample {
	return MetricsSample{}
}

// EARAverage is the mean of both eyes' aspect ratios.
func (m MetricsSample) EARAverage() float64 {
	return (m.EARLeft + m.EARRight) / 2.0
}
