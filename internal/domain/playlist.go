package domain

// Playlist is the ordered media queue. CurrentIndex is -1 when playback does
// not come from the playlist; otherwise it must satisfy
// 0 <= CurrentIndex < len(Items) after every mutation.
type Playlist struct {
	Items        []MediaElement `json:"items"`
	CurrentIndex int            `json:"currentIndex"`
}

// Valid reports whether CurrentIndex is within bounds for the current item
// count. Updates that would violate the bound are rejected, never clamped.
func (p Playlist) Valid() bool {
	return p.CurrentIndex >= -1 && p.CurrentIndex < len(p.Items)
}

// HasNext reports whether an item follows the currently playing one.
func (p Playlist) HasNext() bool {
	return p.CurrentIndex+1 < len(p.Items)
}

// RemoveItem deletes the item at index i. If the currently playing item is
// deleted, CurrentIndex drops to -1; items before it shift it down by one;
// items after it leave it untouched.
func (p *Playlist) RemoveItem(i int) bool {
	if i < 0 || i >= len(p.Items) {
		return false
	}

	p.Items = append(p.Items[:i], p.Items[i+1:]...)
	switch {
	case p.CurrentIndex == i:
		p.CurrentIndex = -1
	case p.CurrentIndex > i:
		p.CurrentIndex--
	}

	return true
}

// InsertItem inserts item at index i, shifting CurrentIndex up when the
// insertion lands at or before it.
func (p *Playlist) InsertItem(i int, item MediaElement) bool {
	if i < 0 || i > len(p.Items) {
		return false
	}

	p.Items = append(p.Items, MediaElement{})
	copy(p.Items[i+1:], p.Items[i:])
	p.Items[i] = item

	if p.CurrentIndex >= i {
		p.CurrentIndex++
	}

	return true
}

// MoveItem moves the item at index from to index to, the drag-reorder
// operation. CurrentIndex follows the moved item when it is the one being
// dragged; otherwise it shifts by one against the direction of the move when
// it lies in the displaced range: (from, to] for a forward move, [to, from)
// for a backward one.
func (p *Playlist) MoveItem(from, to int) bool {
	if from < 0 || from >= len(p.Items) || to < 0 || to >= len(p.Items) {
		return false
	}
	if from == to {
		return true
	}

	item := p.Items[from]
	p.Items = append(p.Items[:from], p.Items[from+1:]...)
	p.Items = append(p.Items, MediaElement{})
	copy(p.Items[to+1:], p.Items[to:])
	p.Items[to] = item

	switch {
	case p.CurrentIndex == from:
		p.CurrentIndex = to
	case p.CurrentIndex > from && p.CurrentIndex <= to:
		p.CurrentIndex--
	case p.CurrentIndex >= to && p.CurrentIndex < from:
		p.CurrentIndex++
	}

	return true
}
