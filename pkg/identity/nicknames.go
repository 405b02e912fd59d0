package identity

import "strings"

// nicknameGroups lists given names that refer to the same person across
// common English spellings and diminutives. The table is intentionally
// English-name-centric; that is a known limitation of the directory it
// was built against, not something to paper over with guessed variants
// for other languages.
var nicknameGroups = [][]string{
	{"abigail", "abby", "gail"},
	{"alexander", "alexandra", "alex", "sasha"},
	{"amanda", "mandy"},
	{"andrew", "andy", "drew"},
	{"anthony", "tony"},
	{"benjamin", "ben", "benny"},
	{"catherine", "katherine", "kate", "katie", "cathy", "kathy", "kat"},
	{"charles", "charlie", "chuck", "chas"},
	{"christopher", "christine", "chris"},
	{"cynthia", "cindy"},
	{"daniel", "dan", "danny"},
	{"david", "dave"},
	{"donald", "don"},
	{"douglas", "doug"},
	{"edward", "ed", "eddie", "ted", "teddy"},
	{"elizabeth", "liz", "beth", "lizzie", "eliza", "betty"},
	{"eugene", "gene"},
	{"francis", "frances", "frank", "fran"},
	{"frederick", "fred", "freddy"},
	{"gerald", "gerard", "jerry"},
	{"gregory", "greg"},
	{"gwendolyn", "wendy", "gwen"},
	{"henry", "hank", "harry"},
	{"james", "jim", "jimmy", "jamie"},
	{"jeffrey", "jeff", "geoff", "geoffrey"},
	{"jennifer", "jen", "jenny"},
	{"john", "jack", "johnny", "jon", "jonathan"},
	{"joseph", "joe", "joey"},
	{"kenneth", "ken", "kenny"},
	{"lawrence", "larry"},
	{"margaret", "maggie", "meg", "peggy"},
	{"matthew", "matt"},
	{"michael", "mike", "mickey"},
	{"nathan", "nathaniel", "nate"},
	{"nicholas", "nick"},
	{"patrick", "patricia", "pat"},
	{"raymond", "ray"},
	{"rebecca", "becky"},
	{"richard", "rick", "rich", "dick"},
	{"robert", "rob", "bob", "bobby"},
	{"ronald", "ron"},
	{"samuel", "samantha", "sam"},
	{"stephen", "steven", "steve"},
	{"susan", "sue", "susie"},
	{"thomas", "tom", "tommy"},
	{"timothy", "tim"},
	{"victoria", "vicky"},
	{"walter", "walt"},
	{"william", "bill", "will", "billy", "liam"},
}

// nicknameIndex maps each spelling to its group id.
var nicknameIndex = buildNicknameIndex()

func buildNicknameIndex() map[string]int {
	idx := make(map[string]int)
	for group, names := range nicknameGroups {
		for _, name := range names {
			idx[name] = group
		}
	}
	return idx
}

// NicknamesMatch reports whether two given names refer to the same
// person according to the static nickname table. The relation is
// symmetric: NicknamesMatch("jeff", "jeffrey") == NicknamesMatch("jeffrey", "jeff").
func NicknamesMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	ga, ok := nicknameIndex[a]
	if !ok {
		return false
	}
	gb, ok := nicknameIndex[b]
	return ok && ga == gb
}

// givenNamesEquivalent reports whether two given names match exactly,
// via the nickname table, or via a >=3 character prefix relation in
// either direction.
func givenNamesEquivalent(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if NicknamesMatch(a, b) {
		return true
	}
	if len(a) >= 3 && strings.HasPrefix(b, a) {
		return true
	}
	if len(b) >= 3 && strings.HasPrefix(a, b) {
		return true
	}
	return false
}
