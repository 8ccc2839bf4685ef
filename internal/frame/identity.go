package frame

// IdentityMode says how a row locates itself: by state abbreviation or by
// coordinate pair. Resolved once per row, not re-derived per lookup.
type IdentityMode int

const (
	// IdentityNone means the row carries neither a usable state nor a
	// coordinate pair.
	IdentityNone IdentityMode = iota

	// IdentityByState locates the row by its state abbreviation column.
	IdentityByState

	// IdentityByCoordinate locates the row by latitude/longitude.
	IdentityByCoordinate
)

// Identity is the resolved location strategy for one row.
type Identity struct {
	Mode  IdentityMode
	State string  // set for IdentityByState
	Lat   float64 // set for IdentityByCoordinate
	Lon   float64
}

// RowIdentity resolves a row's identity, preferring the state column when
// the frame has one. Rows with coordinate columns that fail to parse come
// back as IdentityNone.
func (f *Frame) RowIdentity(row Row) Identity {
	if f.HasColumn("state") {
		return Identity{Mode: IdentityByState, State: row["state"]}
	}
	if f.HasColumn("latitude") && f.HasColumn("longitude") {
		lat, latErr := row.Float("latitude")
		lon, lonErr := row.Float("longitude")
		if latErr != nil || lonErr != nil {
			return Identity{Mode: IdentityNone}
		}
		return Identity{Mode: IdentityByCoordinate, Lat: lat, Lon: lon}
	}
	return Identity{Mode: IdentityNone}
}
