package xivdata

// Crystal and shard catalysts occupy a fixed, low id range in the item
// database. They are consumed by every recipe of a craft class, so material
// views offer a toggle to leave them out entirely.
const (
	crystalMinID ItemID = 2
	crystalMaxID ItemID = 19
)

// IsCrystal reports whether the item is a crystal/shard catalyst.
func IsCrystal(id ItemID) bool {
	return id >= crystalMinID && id <= crystalMaxID
}
