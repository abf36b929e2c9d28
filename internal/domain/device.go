package domain

// Device is an inventoried smartphone or tablet owned by a municipality.
type Device struct {
	ID           string
	Municipality string
	IMEI1        string
	IMEI2        string
	Brand        string
	Model        string
	Capacity     string
	SerialNumber string
	DeliveredOn  string
	UsageSite    string
	Condition    string
	AssetTag     string
}
