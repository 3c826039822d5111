package rules

// Default returns the built-in rule set for the demo collections.
//
// The "users" collection is intentionally undeclared: it exists only as an
// auxiliary lookup target (admin flags), so clients hit the default deny.
func Default() *RuleSet {
	rs := NewRuleSet()

	// Readable by anyone, creatable only by a signed-in user whose uid is
	// stamped on the incoming document. Never updatable or deletable.
	ownedCreate := AllOf{
		Authenticated{},
		Equals{From: Source{Kind: FromRequest}, Field: "uid", To: Ref{Kind: RefAuthUID}},
	}
	readAndCreate := CollectionRule{Get: Anyone{}, List: Anyone{}, Create: ownedCreate}

	rs.Declare("readAndCreateCollection", readAndCreate)
	rs.Declare("comments", readAndCreate)
	rs.Declare("diceRolls", readAndCreate)

	// Readable only by the document owner, and only when the owner's
	// users/{uid} document carries isAdmin: true.
	adminOwnerRead := AllOf{
		Authenticated{},
		Equals{From: Source{Kind: FromResource}, Field: "uid", To: Ref{Kind: RefAuthUID}},
		IsTrue{
			From:  Source{Kind: FromLookup, Collection: "users", ID: Ref{Kind: RefAuthUID}},
			Field: "isAdmin",
		},
	}
	rs.Declare("readIfUserIsAdminAndOwnerCollection", CollectionRule{
		Get:  adminOwnerRead,
		List: adminOwnerRead,
	})

	// Chat groups are written by anyone listing themselves as a member, so a
	// user can establish membership; reads require stored membership.
	memberOfNew := Contains{From: Source{Kind: FromRequest}, Field: "userIds"}
	memberOfStored := Contains{From: Source{Kind: FromResource}, Field: "userIds"}
	rs.Declare("chatGroups", CollectionRule{
		Get:    memberOfStored,
		List:   memberOfStored,
		Create: AllOf{Authenticated{}, memberOfNew},
		Update: AllOf{Authenticated{}, memberOfNew},
	})

	// Chat documents reference a group; creating one requires ownership of
	// the document and membership in the referenced group.
	memberOfGroup := func(idRef Ref) Contains {
		return Contains{
			From:  Source{Kind: FromLookup, Collection: "chatGroups", ID: idRef},
			Field: "userIds",
		}
	}
	rs.Declare("readWriteIfUserIsInChatGroup", CollectionRule{
		Get:  memberOfGroup(Ref{Kind: RefResourceField, Field: "chatGroupId"}),
		List: memberOfGroup(Ref{Kind: RefResourceField, Field: "chatGroupId"}),
		Create: AllOf{
			Authenticated{},
			Equals{From: Source{Kind: FromRequest}, Field: "uid", To: Ref{Kind: RefAuthUID}},
			memberOfGroup(Ref{Kind: RefRequestField, Field: "chatGroupId"}),
		},
	})

	return rs
}
