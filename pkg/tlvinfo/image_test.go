package tlvinfo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// rawHeader builds an unvalidated header followed by body.
func rawHeader(sig string, version byte, totalLen uint16, body ...byte) []byte {
	b := make([]byte, HeaderSize, HeaderSize+len(body))
	copy(b[:8], sig)
	b[8] = version
	binary.BigEndian.PutUint16(b[9:11], totalLen)
	return append(b, body...)
}

func mustImage(t *testing.T, b []byte) *Image {
	t.Helper()
	img, err := FromBytes(b)
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	return img
}

func TestIsValidHeader(t *testing.T) {
	testCases := []struct {
		name string
		raw  []byte
		want bool
	}{
		{"fresh", rawHeader("TlvInfo", 1, 0), true},
		{"max length", rawHeader("TlvInfo", 1, MaxTotalLen), true},
		{"length one past max", rawHeader("TlvInfo", 1, MaxTotalLen+1), false},
		{"bad signature", rawHeader("BadSig\x00\x00", 1, 0), false},
		{"bad signature any length", rawHeader("BadSig\x00\x00", 1, 100), false},
		{"unterminated signature", rawHeader("TlvInfoX", 1, 0), false},
		{"signature prefix", rawHeader("TlvInf", 1, 0), false},
		{"version zero", rawHeader("TlvInfo", 0, 0), false},
		{"version two", rawHeader("TlvInfo", 2, 0), false},
		{"short buffer", []byte("TlvInfo"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidHeader(tc.raw); got != tc.want {
				t.Errorf("IsValidHeader() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNewImage(t *testing.T) {
	img := NewImage()

	if !img.Valid() {
		t.Fatal("new image has an invalid header")
	}
	if img.TotalLen() != 0 {
		t.Errorf("TotalLen = %d, want 0", img.TotalLen())
	}
	if img.Free() != MaxTotalLen {
		t.Errorf("Free = %d, want %d", img.Free(), MaxTotalLen)
	}
	if got := img.Header().SignatureString(); got != Signature {
		t.Errorf("signature = %q, want %q", got, Signature)
	}
	if len(img.Bytes()) != HeaderSize {
		t.Errorf("Bytes() len = %d, want %d", len(img.Bytes()), HeaderSize)
	}
}

func TestFromBytes_Short(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3})
	if !errors.Is(err, ErrShortImage) {
		t.Fatalf("expected ErrShortImage, got %v", err)
	}
}

func TestImage_AddFindRoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		code  Code
		value []byte
	}{
		{"serial number", CodeSerialNumber, []byte("SN12345")},
		{"mac base", CodeMACBase, []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}},
		{"empty value", CodeLabelRevision, []byte{}},
		{"max value", CodeVendorExt, bytes.Repeat([]byte{0xAB}, MaxValueLen)},
		{"unknown code", Code(0x50), []byte{0x01, 0x02}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			img := NewImage()
			if err := img.Add(CodeProductName, []byte("board")); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			if err := img.Add(tc.code, tc.value); err != nil {
				t.Fatalf("Add failed: %v", err)
			}

			off, found, err := img.Find(tc.code)
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			if !found {
				t.Fatal("record not found")
			}
			if off != HeaderSize+EntryHeaderSize+len("board") {
				t.Errorf("offset = %d, want %d", off, HeaderSize+EntryHeaderSize+len("board"))
			}

			rec, found, err := img.Lookup(tc.code)
			if err != nil || !found {
				t.Fatalf("Lookup = %v, %v", found, err)
			}
			if !bytes.Equal(rec.Value, tc.value) {
				t.Errorf("value = %v, want %v", rec.Value, tc.value)
			}
			if rec.Offset != off {
				t.Errorf("Lookup offset = %d, Find offset = %d", rec.Offset, off)
			}
		})
	}
}

func TestImage_SerialNumberScenario(t *testing.T) {
	img := mustImage(t, rawHeader("TlvInfo", 1, 0))

	if err := img.Add(0x23, []byte("SN12345")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := img.UpdateCRC(); err != nil {
		t.Fatalf("UpdateCRC failed: %v", err)
	}
	if !img.CheckCRC() {
		t.Fatal("CheckCRC returned false after UpdateCRC")
	}

	off, found, err := img.Find(0x23)
	if err != nil || !found {
		t.Fatalf("Find = %d, %v, %v", off, found, err)
	}
	raw := img.Raw()
	if raw[off+1] != 7 {
		t.Errorf("length = %d, want 7", raw[off+1])
	}
	if got := string(raw[off+2 : off+2+7]); got != "SN12345" {
		t.Errorf("value = %q, want %q", got, "SN12345")
	}
	if img.TotalLen() != 9+6 {
		t.Errorf("TotalLen = %d, want 15", img.TotalLen())
	}
}

func TestImage_FindMissing(t *testing.T) {
	img := NewImage()
	if err := img.Add(CodeSerialNumber, []byte("x")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	_, found, err := img.Find(CodePartNumber)
	if err != nil {
		t.Fatalf("Find returned error for a missing record: %v", err)
	}
	if found {
		t.Error("expected not found")
	}
}

func TestImage_FindFirstMatch(t *testing.T) {
	img := NewImage()
	for _, v := range []string{"first", "second"} {
		if err := img.Add(CodeVendorName, []byte(v)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	s, found, err := img.ReadString(CodeVendorName)
	if err != nil || !found {
		t.Fatalf("ReadString = %v, %v", found, err)
	}
	if s != "first" {
		t.Errorf("ReadString = %q, want %q", s, "first")
	}
}

func TestImage_CorruptRecords(t *testing.T) {
	testCases := []struct {
		name string
		raw  []byte
	}{
		{"reserved 0xFF", rawHeader("TlvInfo", 1, 5, 0x21, 0x01, 'a', 0xFF, 0x00)},
		{"reserved 0x00", rawHeader("TlvInfo", 1, 5, 0x21, 0x01, 'a', 0x00, 0x00)},
		{"length overrun", rawHeader("TlvInfo", 1, 3, 0x21, 0x05, 'a')},
		{"truncated entry", rawHeader("TlvInfo", 1, 4, 0x21, 0x01, 'a', 0x22)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			img := mustImage(t, tc.raw)

			if _, _, err := img.Find(CodeSerialNumber); !errors.Is(err, ErrCorruptRecord) {
				t.Errorf("Find: expected ErrCorruptRecord, got %v", err)
			}
			if _, err := img.Records(); !errors.Is(err, ErrCorruptRecord) {
				t.Errorf("Records: expected ErrCorruptRecord, got %v", err)
			}
			if err := img.Add(CodeSerialNumber, []byte("x")); !errors.Is(err, ErrCorruptRecord) {
				t.Errorf("Add: expected ErrCorruptRecord, got %v", err)
			}
			if _, err := img.Delete(CodeSerialNumber); !errors.Is(err, ErrCorruptRecord) {
				t.Errorf("Delete: expected ErrCorruptRecord, got %v", err)
			}
			if err := img.UpdateCRC(); !errors.Is(err, ErrCorruptRecord) {
				t.Errorf("UpdateCRC: expected ErrCorruptRecord, got %v", err)
			}
		})
	}
}

func TestImage_InvalidHeaderGate(t *testing.T) {
	img := mustImage(t, rawHeader("BadSig\x00\x00", 1, 0))

	if _, _, err := img.Find(CodeSerialNumber); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("Find: expected ErrInvalidHeader, got %v", err)
	}
	if err := img.Add(CodeSerialNumber, []byte("x")); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("Add: expected ErrInvalidHeader, got %v", err)
	}
	if _, err := img.Delete(CodeSerialNumber); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("Delete: expected ErrInvalidHeader, got %v", err)
	}
	if err := img.UpdateCRC(); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("UpdateCRC: expected ErrInvalidHeader, got %v", err)
	}
	if img.CheckCRC() {
		t.Error("CheckCRC returned true for an invalid header")
	}
}

func TestImage_AddRejects(t *testing.T) {
	testCases := []struct {
		name  string
		code  Code
		value []byte
		want  error
	}{
		{"reserved low", 0x00, []byte("x"), ErrInvalidCode},
		{"reserved high", 0xFF, []byte("x"), ErrInvalidCode},
		{"crc code", CodeCRC32, []byte{1, 2, 3, 4}, ErrInvalidCode},
		{"value too long", CodeVendorExt, make([]byte, MaxValueLen+1), ErrValueTooLong},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			img := NewImage()
			before := img.Clone()

			err := img.Add(tc.code, tc.value)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !bytes.Equal(img.Raw(), before.Raw()) {
				t.Error("rejected Add modified the image")
			}
		})
	}
}

// fillTo adds 255 byte vendor extension records until fewer than
// 2+MaxValueLen bytes are free, then returns the remaining free space.
func fillTo(t *testing.T, img *Image) int {
	t.Helper()
	big := bytes.Repeat([]byte{0x5A}, MaxValueLen)
	for img.Free() >= EntryHeaderSize+MaxValueLen {
		if err := img.Add(CodeVendorExt, big); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	return img.Free()
}

func TestImage_CapacityBoundary(t *testing.T) {
	probe := NewImage()
	free := fillTo(t, probe)
	if free != MaxTotalLen-7*(EntryHeaderSize+MaxValueLen) {
		t.Fatalf("unexpected free space %d", free)
	}

	testCases := []struct {
		name     string
		valueLen int
		wantErr  bool
	}{
		{"exact fit", free - EntryHeaderSize, false},
		{"one byte under", free - EntryHeaderSize - 1, false},
		{"one byte over", free - EntryHeaderSize + 1, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			img := probe.Clone()
			before := img.Clone()

			err := img.Add(CodeServiceTag, make([]byte, tc.valueLen))
			if tc.wantErr {
				if !errors.Is(err, ErrOutOfSpace) {
					t.Fatalf("expected ErrOutOfSpace, got %v", err)
				}
				if !bytes.Equal(img.Raw(), before.Raw()) {
					t.Error("failed Add modified the image")
				}
				return
			}
			if err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			if img.TotalLen() != before.TotalLen()+EntryHeaderSize+tc.valueLen {
				t.Errorf("TotalLen = %d, want %d", img.TotalLen(), before.TotalLen()+EntryHeaderSize+tc.valueLen)
			}
		})
	}
}

func TestImage_AddDropsTrailingCRC(t *testing.T) {
	img := NewImage()
	if err := img.Add(CodeSerialNumber, []byte("SN1")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := img.UpdateCRC(); err != nil {
		t.Fatalf("UpdateCRC failed: %v", err)
	}
	withCRC := img.TotalLen()

	if err := img.Add(CodePartNumber, []byte("PN1")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, found, _ := img.Find(CodeCRC32); found {
		t.Error("CRC-32 record survived Add")
	}
	if img.TotalLen() != withCRC-crcRecordSize+EntryHeaderSize+3 {
		t.Errorf("TotalLen = %d", img.TotalLen())
	}
	if img.CheckCRC() {
		t.Error("CheckCRC returned true without a CRC record")
	}

	if err := img.UpdateCRC(); err != nil {
		t.Fatalf("UpdateCRC failed: %v", err)
	}
	recs, err := img.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	want := []Code{CodeSerialNumber, CodePartNumber, CodeCRC32}
	if len(recs) != len(want) {
		t.Fatalf("got %d records, want %d", len(recs), len(want))
	}
	for i, c := range want {
		if recs[i].Code != c {
			t.Errorf("record %d = %v, want %v", i, recs[i].Code, c)
		}
	}
	if !img.CheckCRC() {
		t.Error("CheckCRC returned false after UpdateCRC")
	}
}

func TestImage_DeleteClosesGap(t *testing.T) {
	img := NewImage()
	entries := []struct {
		code  Code
		value string
	}{
		{CodeProductName, "alpha"},
		{CodePartNumber, "bravo-1"},
		{CodeSerialNumber, "c"},
		{CodeVendorName, "delta"},
	}
	for _, e := range entries {
		if err := img.Add(e.code, []byte(e.value)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	before, err := img.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	totalBefore := img.TotalLen()

	deleted, err := img.Delete(CodePartNumber)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted {
		t.Fatal("Delete reported nothing deleted")
	}

	removed := EntryHeaderSize + len("bravo-1")
	if img.TotalLen() != totalBefore-removed {
		t.Errorf("TotalLen = %d, want %d", img.TotalLen(), totalBefore-removed)
	}

	after, err := img.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(after) != len(before)-1 {
		t.Fatalf("got %d records, want %d", len(after), len(before)-1)
	}
	if after[0].Offset != before[0].Offset {
		t.Errorf("record before the gap moved: %d -> %d", before[0].Offset, after[0].Offset)
	}
	for i := 1; i < len(after); i++ {
		prev := before[i+1]
		if after[i].Offset != prev.Offset-removed {
			t.Errorf("record %v offset = %d, want %d", after[i].Code, after[i].Offset, prev.Offset-removed)
		}
		if after[i].Code != prev.Code || !bytes.Equal(after[i].Value, prev.Value) {
			t.Errorf("record %d changed: %+v -> %+v", i, prev, after[i])
		}
	}

	// The vacated tail is cleared.
	end := HeaderSize + img.TotalLen()
	if !bytes.Equal(img.Raw()[end:end+removed], make([]byte, removed)) {
		t.Error("tail bytes were not cleared")
	}
}

func TestImage_DeleteLastAndMissing(t *testing.T) {
	img := NewImage()
	if err := img.Add(CodeProductName, []byte("p")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := img.Add(CodeServiceTag, []byte("tag")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	deleted, err := img.Delete(CodeServiceTag)
	if err != nil || !deleted {
		t.Fatalf("Delete last = %v, %v", deleted, err)
	}
	if img.TotalLen() != EntryHeaderSize+1 {
		t.Errorf("TotalLen = %d, want 3", img.TotalLen())
	}

	deleted, err = img.Delete(CodeServiceTag)
	if err != nil {
		t.Fatalf("Delete missing returned error: %v", err)
	}
	if deleted {
		t.Error("Delete missing reported a deletion")
	}
}

func TestImage_DeleteDuplicatesOneAtATime(t *testing.T) {
	img := NewImage()
	for _, v := range []string{"one", "two", "three"} {
		if err := img.Add(CodeDiagVersion, []byte(v)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	for _, next := range []string{"two", "three"} {
		if _, err := img.Delete(CodeDiagVersion); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		s, found, err := img.ReadString(CodeDiagVersion)
		if err != nil || !found {
			t.Fatalf("ReadString = %v, %v", found, err)
		}
		if s != next {
			t.Errorf("first remaining = %q, want %q", s, next)
		}
	}

	count := 0
	for {
		deleted, err := img.Delete(CodeDiagVersion)
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if !deleted {
			break
		}
		count++
	}
	if count != 1 || img.TotalLen() != 0 {
		t.Errorf("count = %d, TotalLen = %d", count, img.TotalLen())
	}
}

func TestImage_DeleteLeavesStaleCRC(t *testing.T) {
	img := NewImage()
	if err := img.Add(CodeProductName, []byte("p")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := img.Add(CodeSerialNumber, []byte("s")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := img.UpdateCRC(); err != nil {
		t.Fatalf("UpdateCRC failed: %v", err)
	}
	total := img.TotalLen()

	if _, err := img.Delete(CodeProductName); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if img.TotalLen() != total-3 {
		t.Errorf("TotalLen = %d, want %d", img.TotalLen(), total-3)
	}
	if img.CheckCRC() {
		t.Error("CheckCRC returned true after Delete")
	}
	if err := img.UpdateCRC(); err != nil {
		t.Fatalf("UpdateCRC failed: %v", err)
	}
	if !img.CheckCRC() {
		t.Error("CheckCRC returned false after UpdateCRC")
	}
}

func TestImage_Erase(t *testing.T) {
	img := NewImage()
	if err := img.Add(CodeProductName, []byte("p")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	img.Erase()

	if !img.Valid() || img.TotalLen() != 0 {
		t.Errorf("Erase left valid=%v total=%d", img.Valid(), img.TotalLen())
	}
	recs, err := img.Records()
	if err != nil || len(recs) != 0 {
		t.Errorf("Records = %v, %v", recs, err)
	}
}

func TestImage_RecordsCopyValues(t *testing.T) {
	img := NewImage()
	if err := img.Add(CodeProductName, []byte("abc")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	recs, err := img.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	recs[0].Value[0] = 'z'

	s, _, _ := img.ReadString(CodeProductName)
	if s != "abc" {
		t.Errorf("mutating a returned record changed the image: %q", s)
	}
}

func TestImage_WalkReportsCorruptOffset(t *testing.T) {
	img := mustImage(t, rawHeader("TlvInfo", 1, 5, 0x21, 0x01, 'a', 0xFF, 0x00))

	var seen []Code
	err := img.Walk(func(r Record) bool {
		seen = append(seen, r.Code)
		return true
	})

	var recErr *RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *RecordError, got %v", err)
	}
	if recErr.Offset != HeaderSize+3 {
		t.Errorf("offset = %d, want %d", recErr.Offset, HeaderSize+3)
	}
	if len(seen) != 1 || seen[0] != CodeProductName {
		t.Errorf("records before the corruption = %v", seen)
	}
}
