package keyid

import (
	"errors"
	"fmt"
	"strings"
)

const (
	keyIdLength   = 20
	prefixLength  = 4
	payloadLength = keyIdLength - prefixLength

	// bits 7-46 of the big-endian payload value carry the account id
	accountIdMask  uint64 = 0x7FFFFFFFFF80
	accountIdShift        = 7
)

var (
	ErrInvalidLength     = errors.New("invalid key id length")
	ErrUnsupportedPrefix = errors.New("unsupported key id prefix")
	ErrUnknownPrefix     = errors.New("unknown key id prefix")
	ErrInvalidCharacter  = errors.New("invalid base32 character in key id")
)

// resource types associated with each supported key id prefix.
// legacy prefixes beginning with "I" or "J" are intentionally absent.
var resourceTypes = map[string]string{
	"ABIA": "EC2 dedicated host",
	"ACCA": "Context-specific credential",
	"ACPA": "Context-specific credential",
	"AGPA": "Group",
	"AIDA": "IAM user",
	"AIPA": "Amazon EC2 instance profile",
	"AKIA": "Access key",
	"ANPA": "Managed policy",
	"ANVA": "Version in a managed policy",
	"AROA": "Role",
	"APKA": "Public key",
	"ASCA": "Certificate",
	"ASIA": "Temporary (STS) access key",
}

// GetAssociatedResourceType returns the resource type associated with the
// four character prefix of an AWS key id.
func GetAssociatedResourceType(keyId string) (string, error) {
	trimmed := strings.TrimSpace(keyId)
	if len(trimmed) < prefixLength {
		return "", fmt.Errorf("%w: need at least %d characters to identify the prefix", ErrInvalidLength, prefixLength)
	}
	prefix := strings.ToUpper(trimmed[:prefixLength])
	resourceType, ok := resourceTypes[prefix]
	if !ok {
		return "", fmt.Errorf("%w: [%v]", ErrUnknownPrefix, prefix)
	}
	return resourceType, nil
}

// GetAwsAccountId decodes the AWS account id embedded in an access key id.
// Only current format key ids with a four character resource prefix beginning
// with "A" are supported.  Older key ids beginning with "I" or "J" are rejected.
//
// The result is zero padded to the 12 digits of an AWS account id.  The masked
// payload spans 40 bits, so a synthetic key id can decode to a value above
// 10^12, which formats at its natural 13 digit width; AWS never issues such
// account ids.
func GetAwsAccountId(keyId string) (string, error) {
	keyId = strings.TrimSpace(keyId)
	if len(keyId) != keyIdLength {
		return "", fmt.Errorf("%w: expected %d characters, got %d", ErrInvalidLength, keyIdLength, len(keyId))
	}
	if keyId[0] != 'A' {
		return "", fmt.Errorf("%w: key id begins with %q", ErrUnsupportedPrefix, keyId[0])
	}

	// decode the 16 character payload as an unpadded base32 big-endian integer,
	// 5 bits per character, flushing full bytes as they accumulate
	var decoded [payloadLength * 5 / 8]byte
	var buffer uint32
	numBits := 0
	numBytes := 0
	for i := prefixLength; i < keyIdLength; i++ {
		val, ok := base32Value(keyId[i])
		if !ok {
			return "", fmt.Errorf("%w: %q at position %d", ErrInvalidCharacter, keyId[i], i)
		}
		buffer = buffer<<5 | val
		numBits += 5
		if numBits >= 8 {
			numBits -= 8
			decoded[numBytes] = byte(buffer >> numBits)
			buffer &= 1<<numBits - 1
			numBytes++
		}
	}

	// the account id lives in the top 6 bytes of the 80 bit value
	z := uint64(decoded[0])<<40 | uint64(decoded[1])<<32 | uint64(decoded[2])<<24 |
		uint64(decoded[3])<<16 | uint64(decoded[4])<<8 | uint64(decoded[5])
	accountId := (z & accountIdMask) >> accountIdShift

	// aws account ids are always 12 digits, left padded with zeros
	return fmt.Sprintf("%012d", accountId), nil
}

// 5 bit value of a character in the RFC 4648 base32 alphabet (A-Z, 2-7)
func base32Value(c byte) (uint32, bool) {
	switch {
	case c >= 'A' && c <= 'Z':
		return uint32(c - 'A'), true
	case c >= '2' && c <= '7':
		return uint32(c-'2') + 26, true
	}
	return 0, false
}
