package acinfinity

// GATT characteristics of the controller.
const (
	// NotifyCharUUID carries sensor state and command acknowledgments.
	NotifyCharUUID = "70d51002-2c7f-4e75-ae8a-d758951ce4e0"

	// WriteCharUUID accepts command frames.
	WriteCharUUID = "70d51001-2c7f-4e75-ae8a-d758951ce4e0"
)
