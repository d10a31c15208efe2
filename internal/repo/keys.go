package repo

import "strings"

// Single-table key layout. There are no secondary indexes; every alternate
// lookup path is a manually maintained index record pointing at the
// canonical one.
//
//	LINK#<id>                  meta                          canonical link
//	LINKTOKEN#<token>          meta                          token -> link id
//	LINKCODE#<code>            meta                          short code -> link id
//	ROOM#<roomID>              link#<createdAt>#<id>         chronological room index
//	ROOM#<roomID>              ndatpl#<createdAt>#<id>       template versions
//	ROOM#<roomID>              ndasig#<signedAt>#<id>        signatures
//	NDATPL#<id>                meta                          canonical template
//	NDAGRANT#<roomID>#<email>  grant#<grantedAt>#<id>        grants by lowercased email
//	ACCESS#<grantID>           meta                          short-lived grant (TTL)
//	LINKLOG#<linkID>           log#<occurredAt>#<id>         access log
//	ROOMS                      room#<roomID>                 room registry
const (
	metaSK  = "meta"
	roomsPK = "ROOMS"
)

func linkPK(id string) string          { return "LINK#" + id }
func linkTokenPK(token string) string  { return "LINKTOKEN#" + token }
func linkCodePK(code string) string    { return "LINKCODE#" + code }
func roomPK(roomID string) string      { return "ROOM#" + roomID }
func templatePK(id string) string      { return "NDATPL#" + id }
func accessGrantPK(id string) string   { return "ACCESS#" + id }
func linkLogPK(linkID string) string   { return "LINKLOG#" + linkID }
func roomEntrySK(roomID string) string { return "room#" + roomID }

func roomLinkSK(createdAt, id string) string     { return "link#" + createdAt + "#" + id }
func roomTemplateSK(createdAt, id string) string { return "ndatpl#" + createdAt + "#" + id }
func roomSignatureSK(signedAt, id string) string { return "ndasig#" + signedAt + "#" + id }
func logSK(occurredAt, id string) string         { return "log#" + occurredAt + "#" + id }

func ndaGrantPK(roomID, email string) string {
	return "NDAGRANT#" + roomID + "#" + strings.ToLower(email)
}
func ndaGrantSK(grantedAt, id string) string { return "grant#" + grantedAt + "#" + id }
