package mqtt

import (
	"sync"

	"github.com/vaneuver/corert"
	"github.com/vaneuver/corert/internal/constants"
)

// maxPublishRecords bounds the number of unacknowledged QoS1 PUBLISH
// packets the store tracks at once, matching
// IOTCORED_MQTT_MAX_PUBLISH_RECORDS.
const maxPublishRecords = constants.MaxUnackedPublishRecords

// networkBufferSize is the serialized-packet size budget per PUBLISH,
// matching IOTCORED_NETWORK_BUFFER_SIZE.
const networkBufferSize = constants.NetworkBufferSize

// unackedBufferSize is the total contiguous byte store for unacked
// publishes, matching IOTCORED_UNACKED_PACKET_BUFFER_SIZE
// (networkBufferSize * 3).
const unackedBufferSize = constants.UnackedBufferSize

type storedPublish struct {
	packetID uint16 // 0 means the slot is empty
	offset   int
	length   int
}

// PublishStore is a fixed-capacity, contiguously-packed store for
// unacknowledged QoS1 PUBLISH packets awaiting PUBACK. Grounded on
// iotcored's mqtt_pub_alloc/mqtt_pub_free/mqtt_store_packet/
// mqtt_retrieve_packet/mqtt_clear_packet: records are kept packed at the
// front of a fixed backing buffer, and freeing a record compacts the
// buffer and the record table so there is never internal fragmentation.
type PublishStore struct {
	mu      sync.Mutex
	buf     [unackedBufferSize]byte
	records [maxPublishRecords]storedPublish
}

// NewPublishStore returns an empty store.
func NewPublishStore() *PublishStore {
	return &PublishStore{}
}

func (s *PublishStore) firstEmptySlot() int {
	for i := range s.records {
		if s.records[i].packetID == 0 {
			return i
		}
	}
	return -1
}

func (s *PublishStore) bytesFilled() int {
	total := 0
	for _, r := range s.records {
		if r.packetID == 0 {
			break
		}
		total = r.offset + r.length
	}
	return total
}

// Store copies data into the backing buffer and records it under
// packetID. Returns NOMEM if the record table is full or the buffer lacks
// contiguous space.
func (s *PublishStore) Store(packetID uint16, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.firstEmptySlot()
	if i < 0 {
		return corert.NewErr("mqtt_store_packet", corert.KindNoMem, "no space left in record table")
	}

	offset := s.bytesFilled()
	if unackedBufferSize-offset < len(data) {
		return corert.NewErr("mqtt_store_packet", corert.KindNoMem, "no space left in packet buffer")
	}

	copy(s.buf[offset:], data)
	s.records[i] = storedPublish{packetID: packetID, offset: offset, length: len(data)}
	return nil
}

// Retrieve returns a copy of the serialized packet stored under packetID.
func (s *PublishStore) Retrieve(packetID uint16) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.packetID == packetID {
			out := make([]byte, r.length)
			copy(out, s.buf[r.offset:r.offset+r.length])
			return out, true
		}
	}
	return nil, false
}

// Clear removes packetID's record, compacting the backing buffer so the
// bytes after the freed record slide down to fill the gap, and compacting
// the record table so there is no hole before the first empty slot.
// Reports whether packetID was present.
func (s *PublishStore) Clear(packetID uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.records {
		if r.packetID == packetID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	freed := s.records[idx]
	total := s.bytesFilled()

	// Slide the bytes after the freed record down to close the gap.
	copy(s.buf[freed.offset:], s.buf[freed.offset+freed.length:total])
	// Zero the now-unused tail that used to hold the last `length` bytes.
	clearTail := s.buf[total-freed.length : total]
	for i := range clearTail {
		clearTail[i] = 0
	}

	// Shift every later record's offset down by the freed length, and
	// compact the record table itself to remove the hole at idx.
	for i := idx; i < maxPublishRecords-1; i++ {
		if s.records[i+1].packetID == 0 {
			s.records[i] = storedPublish{}
			return true
		}
		s.records[i] = storedPublish{
			packetID: s.records[i+1].packetID,
			offset:   s.records[i+1].offset - freed.length,
			length:   s.records[i+1].length,
		}
	}
	s.records[maxPublishRecords-1] = storedPublish{}
	return true
}

// Len reports how many unacked publishes are currently stored.
func (s *PublishStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.packetID == 0 {
			break
		}
		n++
	}
	return n
}

// PacketIDs returns the packet IDs of every currently stored, unacked
// publish, in storage order.
func (s *PublishStore) PacketIDs() []uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint16, 0, maxPublishRecords)
	for _, r := range s.records {
		if r.packetID == 0 {
			break
		}
		ids = append(ids, r.packetID)
	}
	return ids
}
