package domain

// Car is embedded in a User; one car per user in this system.
type Car struct {
	CarID             string  `json:"car_id"`
	UserID            string  `json:"user_id"`
	BatteryCapacityKWh float64 `json:"battery_capacity_kwh"`
}

// User is the registered account that owns exactly one Car.
//
// ContactEmail is not part of the register wire action (spec §6); it
// starts empty, no wire action or admin route sets it, and it is only
// non-empty when a restored users snapshot carries it.
// The bill-completion notifier treats an empty ContactEmail as "no
// notification wanted" rather than an error.
type User struct {
	UserID         string `json:"user_id"`
	PasswordDigest string `json:"password_digest"`
	Car            Car    `json:"car"`
	ContactEmail   string `json:"contact_email,omitempty"`
}
