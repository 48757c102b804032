package domain

// Device is the Home Assistant device every mirrored entity belongs to.
type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
}

// GenericSensor describes one read-only entity. Empty strings are left out of
// the discovery payload.
type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string
	DeviceClass       string
	EntityCategory    string
	EnabledByDefault  *bool
	// DisplayPrecision is the number of decimals Home Assistant shows.
	DisplayPrecision *int
	Icon             string
}

type GenericSwitch struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
}
