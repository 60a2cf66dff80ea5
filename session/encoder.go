package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	stateFormatVersionCurrent = 1
)

const stateFlagShowRecoveryLink = 1 << 0

func Encode(s *State) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(stateFormatVersionCurrent)

	if err := binary.Write(&buf, binary.BigEndian, s.FailureCount); err != nil {
		return nil, err
	}

	var flags byte
	if s.ShowRecoveryLink {
		flags |= stateFlagShowRecoveryLink
	}
	buf.WriteByte(flags)

	if len(s.LastIdentifier) > 255 {
		return nil, errors.New("identifier too long")
	}
	buf.WriteByte(byte(len(s.LastIdentifier)))
	buf.WriteString(s.LastIdentifier)

	if len(s.RecoveryUserID) > 255 {
		return nil, errors.New("recovery user id too long")
	}
	buf.WriteByte(byte(len(s.RecoveryUserID)))
	buf.WriteString(s.RecoveryUserID)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func Decode(data []byte) (*State, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != stateFormatVersionCurrent {
		return nil, errors.New("invalid state version")
	}

	s := &State{}

	if err := binary.Read(reader, binary.BigEndian, &s.FailureCount); err != nil {
		return nil, err
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.ShowRecoveryLink = flags&stateFlagShowRecoveryLink != 0

	identifierLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	identifier := make([]byte, identifierLen)
	if _, err := io.ReadFull(reader, identifier); err != nil {
		return nil, err
	}
	s.LastIdentifier = string(identifier)

	recoveryLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	recoveryUserID := make([]byte, recoveryLen)
	if _, err := io.ReadFull(reader, recoveryUserID); err != nil {
		return nil, err
	}
	s.RecoveryUserID = string(recoveryUserID)

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}

	return s, nil
}
