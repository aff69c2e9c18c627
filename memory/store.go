package memory

import (
	"github.com/bytedance/gopkg/lang/mcache"
)

// dataStore holds the padded bytes of every id. Buffers come from mcache's
// power-of-two pools, which line up with buddy block sizes.
type dataStore struct {
	bufs map[ID][]byte
}

func newDataStore() *dataStore {
	return &dataStore{bufs: make(map[ID][]byte)}
}

// put stores p padded to blockSize under id, releasing any previous buffer.
func (s *dataStore) put(id ID, p []byte, blockSize uint32) {
	buf := mcache.Malloc(int(blockSize))
	n := copy(buf, p)
	clear(buf[n:]) // pooled buffers are not zeroed
	if old, ok := s.bufs[id]; ok {
		mcache.Free(old)
	}
	s.bufs[id] = buf
}

// overwrite rewrites the existing buffer of id in place. p must fit.
func (s *dataStore) overwrite(id ID, p []byte) {
	buf := s.bufs[id]
	n := copy(buf, p)
	clear(buf[n:])
}

func (s *dataStore) get(id ID) ([]byte, bool) {
	buf, ok := s.bufs[id]
	return buf, ok
}

func (s *dataStore) drop(id ID) {
	if buf, ok := s.bufs[id]; ok {
		mcache.Free(buf)
		delete(s.bufs, id)
	}
}

func (s *dataStore) len() int {
	return len(s.bufs)
}

// reset releases every buffer.
func (s *dataStore) reset() {
	for id, buf := range s.bufs {
		mcache.Free(buf)
		delete(s.bufs, id)
	}
}
