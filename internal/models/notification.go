package models

// StreamInfo is the display data of a measurement stream (KPI).
type StreamInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Device is the display data of the device owning a checklist context.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// AlertEmail holds everything an alert notification renders.
type AlertEmail struct {
	StreamName        string
	StreamDescription string
	DeviceName        string
	DeviceLocation    string
	TriggeredValue    any
	Conditions        []Condition
}
