package model

import (
	"github.com/Lexmata/micropdf-sub000/pkg/crypt"
	"github.com/Lexmata/micropdf-sub000/pkg/types"
)

// Permission is one bit of the standard security handler's /P
// permission set, per spec.md §5.
type Permission int

const (
	PermPrint Permission = 1 << iota
	PermModify
	PermCopy
	PermAnnotate
	PermFillForms
	PermExtractAccessibility
	PermAssemble
	PermPrintHighRes
)

var permissionBit = map[Permission]uint{
	PermPrint:                2,
	PermModify:               3,
	PermCopy:                 4,
	PermAnnotate:             5,
	PermFillForms:            8,
	PermExtractAccessibility: 9,
	PermAssemble:             10,
	PermPrintHighRes:         11,
}

// encState carries the authenticated file-encryption key plus the
// /Encrypt dictionary's object number, which is excluded from
// decryption (the /Encrypt dict itself is never encrypted).
type encState struct {
	state      *crypt.State
	permInt    int32
	selfObjNum int
}

// setupEncryption inspects the trailer's /Encrypt entry, if any, and
// authenticates password against it. A document with no /Encrypt
// entry is left unencrypted and always authenticated. An empty
// password is tried automatically, matching most readers' behavior of
// treating "no password supplied" as "try the empty user password"
// before reporting AuthRequired.
func (d *Document) setupEncryption(password string) error {
	encRef, ok := d.trailer[types.Name("Encrypt")]
	if !ok {
		d.authenticated = true
		return nil
	}

	selfNum := 0
	if ref, ok := encRef.(types.IndirectRef); ok {
		selfNum = ref.Num
	}

	dict, ok, err := d.ResolveDict(encRef)
	if err != nil {
		return Wrap(Format, err, "micropdf: resolving /Encrypt dict")
	}
	if !ok {
		return New(Format, "micropdf: /Encrypt is not a dictionary")
	}

	if filter, ok := dict.NameValue("Filter"); !ok || filter != "Standard" {
		return New(Unsupported, "micropdf: unsupported security handler %q", filter)
	}

	params, err := encryptionParams(dict, d)
	if err != nil {
		return err
	}

	d.enc = &encState{permInt: params.P, selfObjNum: selfNum}

	if st, ok := crypt.AuthenticateUserPassword(password, params); ok {
		d.enc.state = st
		d.authenticated = true
		return nil
	}
	// Fall back to the empty password, the common case for files that
	// only set an owner password.
	if password != "" {
		if st, ok := crypt.AuthenticateUserPassword("", params); ok {
			d.enc.state = st
			d.authenticated = true
			return nil
		}
	}
	return nil
}

func encryptionParams(dict types.Dict, d *Document) (crypt.Params, error) {
	var p crypt.Params

	if v, ok := dict.IntValue("V"); ok {
		p.V = int(v)
	}
	p.R = 2
	if v, ok := dict.IntValue("R"); ok {
		p.R = int(v)
	}
	p.Length = 40
	if v, ok := dict.IntValue("Length"); ok {
		p.Length = int(v)
	}
	if v, ok := dict.IntValue("P"); ok {
		p.P = int32(v)
	}
	p.EncryptMeta = true
	if v, ok := dict[types.Name("EncryptMetadata")].(types.Bool); ok {
		p.EncryptMeta = bool(v)
	}

	p.O = stringBytes(dict[types.Name("O")])
	p.U = stringBytes(dict[types.Name("U")])
	p.OE = stringBytes(dict[types.Name("OE")])
	p.UE = stringBytes(dict[types.Name("UE")])
	p.Perms = stringBytes(dict[types.Name("Perms")])

	if idArr, ok := d.trailer[types.Name("ID")].(types.Array); ok && len(idArr) > 0 {
		p.ID = stringBytes(idArr[0])
	}

	p.AES = cryptFilterIsAES(dict)
	return p, nil
}

// cryptFilterIsAES inspects /CF/StdCF/CFM to tell RC4 (V2) from AES
// (V4/V5 with AESV2/AESV3) crypt filter methods.
func cryptFilterIsAES(dict types.Dict) bool {
	v, _ := dict.IntValue("V")
	if v < 4 {
		return false
	}
	cf, ok := dict[types.Name("CF")].(types.Dict)
	if !ok {
		return v >= 5
	}
	std, ok := cf[types.Name("StdCF")].(types.Dict)
	if !ok {
		return v >= 5
	}
	cfm, _ := std.NameValue("CFM")
	return cfm == "AESV2" || cfm == "AESV3"
}

func stringBytes(o types.Object) []byte {
	switch t := o.(type) {
	case types.StringLiteral:
		return []byte(t)
	case types.HexLiteral:
		b, err := t.Bytes()
		if err != nil {
			return nil
		}
		return b
	}
	return nil
}

// NeedsPassword reports whether the document has an /Encrypt entry
// that no password (including the tried-automatically empty one) has
// authenticated against yet.
func (d *Document) NeedsPassword() bool {
	return d.enc != nil && !d.authenticated
}

// Authenticate retries opening the encrypted document with password,
// per spec.md §5's explicit two-step open/authenticate flow for
// password-protected files.
func (d *Document) Authenticate(password string) (bool, error) {
	if d.enc == nil {
		return true, nil
	}
	if d.authenticated {
		return true, nil
	}
	if err := d.setupEncryption(password); err != nil {
		return false, err
	}
	if d.authenticated {
		if err := d.loadCatalog(); err != nil {
			return false, err
		}
	}
	return d.authenticated, nil
}

// HasPermission reports whether the standard security handler's /P
// bitmask grants perm. An unencrypted document grants every
// permission.
func (d *Document) HasPermission(perm Permission) bool {
	if d.enc == nil {
		return true
	}
	bit := permissionBit[perm]
	return d.enc.permInt&(1<<bit) != 0
}

// decryptObject recursively decrypts every String leaf of obj and, for
// a Stream, its raw byte range, skipping the /Encrypt dictionary's own
// object per spec.md §5 (never encrypted, to avoid a bootstrapping
// cycle).
func decryptObject(obj types.Object, num, gen int, enc *encState) types.Object {
	if enc == nil || enc.state == nil || num == enc.selfObjNum {
		return obj
	}
	return decryptValue(obj, num, gen, enc.state)
}

func decryptValue(obj types.Object, num, gen int, st *crypt.State) types.Object {
	switch t := obj.(type) {
	case types.StringLiteral:
		out, err := st.DecryptBytes([]byte(t), num, gen)
		if err != nil {
			return t
		}
		return types.StringLiteral(out)
	case types.HexLiteral:
		b, err := t.Bytes()
		if err != nil {
			return t
		}
		out, err := st.DecryptBytes(b, num, gen)
		if err != nil {
			return t
		}
		return types.NewHexLiteral(out)
	case types.Array:
		out := make(types.Array, len(t))
		for i, v := range t {
			out[i] = decryptValue(v, num, gen, st)
		}
		return out
	case types.Dict:
		out := make(types.Dict, len(t))
		for k, v := range t {
			out[k] = decryptValue(v, num, gen, st)
		}
		return out
	case *types.Stream:
		raw, err := st.DecryptBytes(t.Raw, num, gen)
		if err != nil {
			return t
		}
		decDict := decryptValue(t.Dict, num, gen, st).(types.Dict)
		return &types.Stream{Dict: decDict, Raw: raw}
	}
	return obj
}
