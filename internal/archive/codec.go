package archive

import (
	"encoding/json"
	"errors"

	"brainzzz/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeSnapshotRecord(r SnapshotRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeSnapshotRecord(data []byte) (SnapshotRecord, error) {
	var record SnapshotRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return SnapshotRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return SnapshotRecord{}, err
	}
	return record, nil
}

func EncodeExportRecord(r ExportRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeExportRecord(data []byte) (ExportRecord, error) {
	var record ExportRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return ExportRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return ExportRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
