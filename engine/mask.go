package engine

// Mask is a dense admissibility mask over the vocabulary: one byte per
// token id, 1 if the token keeps the sequence grammar-conformant. Masks
// are snapshots; they are not updated by later matcher operations.
type Mask []byte

// IsAllowed reports whether id is admissible. Out-of-range ids are not.
func (m Mask) IsAllowed(id int32) bool {
	return id >= 0 && int(id) < len(m) && m[id] == 1
}

// Allowed returns the admissible token ids in ascending order.
func (m Mask) Allowed() []int32 {
	var ids []int32
	for i, b := range m {
		if b == 1 {
			ids = append(ids, int32(i))
		}
	}
	return ids
}
