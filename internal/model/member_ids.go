package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MemberIDs is the canonical assignment representation: an ordered list of
// family member ids without duplicates. It decodes from a single id (number
// or numeric string), an array of ids, or null.
type MemberIDs []int64

func (m *MemberIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}

	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("member ids: %w", err)
		}
		ids := make([]int64, 0, len(raw))
		for _, r := range raw {
			id, err := parseMemberID(r)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		*m = NormalizeMemberIDs(ids)
		return nil
	}

	id, err := parseMemberID(data)
	if err != nil {
		return err
	}
	*m = MemberIDs{id}
	return nil
}

func parseMemberID(data []byte) (int64, error) {
	var n json.Number
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, fmt.Errorf("member id: %w", err)
		}
		n = json.Number(strings.TrimSpace(s))
	} else {
		if err := json.Unmarshal(data, &n); err != nil {
			return 0, fmt.Errorf("member id: %w", err)
		}
	}
	id, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid member id %q", n.String())
	}
	return id, nil
}

// NormalizeMemberIDs drops non-positive ids and later duplicates, keeping
// first-seen order.
func NormalizeMemberIDs(ids []int64) MemberIDs {
	out := make(MemberIDs, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Contains reports whether id is in the list.
func (m MemberIDs) Contains(id int64) bool {
	for _, v := range m {
		if v == id {
			return true
		}
	}
	return false
}
