package particles

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/san-kum/pmgrav/internal/compute"
)

var ErrSnapshotSize = errors.New("particles: snapshot size does not match particle count")

// WriteSnapshot writes Count position records {x,y,z,mass} followed by Count
// velocity records {vx,vy,vz,0}, little-endian float32, no header.
func WriteSnapshot(w io.Writer, st *State) error {
	n := st.Count * 4
	if err := binary.Write(w, binary.LittleEndian, st.Pos.Current().Data[:n]); err != nil {
		return fmt.Errorf("writing positions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, st.Vel.Current().Data[:n]); err != nil {
		return fmt.Errorf("writing velocities: %w", err)
	}
	return nil
}

// ReadSnapshot reads a snapshot written by WriteSnapshot into a fresh state.
func ReadSnapshot(r io.Reader, b compute.Backend, count int) (*State, error) {
	st, err := NewState(b, count)
	if err != nil {
		return nil, err
	}
	n := count * 4
	if err := binary.Read(r, binary.LittleEndian, st.Pos.Current().Data[:n]); err != nil {
		return nil, fmt.Errorf("%w: positions: %v", ErrSnapshotSize, err)
	}
	if err := binary.Read(r, binary.LittleEndian, st.Vel.Current().Data[:n]); err != nil {
		return nil, fmt.Errorf("%w: velocities: %v", ErrSnapshotSize, err)
	}
	return st, nil
}

// SnapshotCount infers the particle count from a snapshot byte length.
func SnapshotCount(size int64) (int, error) {
	const record = 2 * 4 * 4
	if size <= 0 || size%record != 0 {
		return 0, fmt.Errorf("%w: %d bytes", ErrSnapshotSize, size)
	}
	return int(size / record), nil
}
