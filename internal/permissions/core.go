package permissions

// Catalog identifiers. Per-kind edit/delete grants let moderators act on any
// instance of that kind and therefore bypass group-scoped checks.
const (
	WebtoonsCreate ID = "webtoons.create"
	WebtoonsEdit   ID = "webtoons.edit"
	WebtoonsDelete ID = "webtoons.delete"

	NovelsCreate ID = "novels.create"
	NovelsEdit   ID = "novels.edit"
	NovelsDelete ID = "novels.delete"

	ChaptersCreate ID = "chapters.create"
	ChaptersEdit   ID = "chapters.edit"
	ChaptersDelete ID = "chapters.delete"

	AuthorsCreate ID = "authors.create"
	AuthorsEdit   ID = "authors.edit"
	AuthorsDelete ID = "authors.delete"

	GroupsEdit          ID = "groups.edit"
	GroupsDelete        ID = "groups.delete"
	GroupsManageMembers ID = "groups.manage_members"

	ContentManageAll    ID = "content.manage_all"
	ContentAssignGroups ID = "content.assign_groups"

	RolesView       ID = "roles.view"
	RolesManage     ID = "roles.manage"
	UsersAssignRole ID = "users.assign_role"

	ActivityView ID = "activity.view"
)

func init() {
	perms := []*Permission{
		{ID: WebtoonsCreate, Description: "Create webtoons without a group"},
		{ID: WebtoonsEdit, Description: "Edit any webtoon"},
		{ID: WebtoonsDelete, DependsOn: []ID{WebtoonsEdit}, Description: "Delete any webtoon"},

		{ID: NovelsCreate, Description: "Create novels without a group"},
		{ID: NovelsEdit, Description: "Edit any novel"},
		{ID: NovelsDelete, DependsOn: []ID{NovelsEdit}, Description: "Delete any novel"},

		{ID: ChaptersCreate, Description: "Upload chapters to any work"},
		{ID: ChaptersEdit, Description: "Edit any chapter"},
		{ID: ChaptersDelete, DependsOn: []ID{ChaptersEdit}, Description: "Delete any chapter"},

		{ID: AuthorsCreate, Description: "Create author profiles not linked to yourself"},
		{ID: AuthorsEdit, Description: "Edit any author profile"},
		{ID: AuthorsDelete, DependsOn: []ID{AuthorsEdit}, Description: "Delete any author profile"},

		{ID: GroupsEdit, Description: "Edit any scanlation group profile"},
		{ID: GroupsDelete, DependsOn: []ID{GroupsEdit}, Description: "Delete any scanlation group"},
		{ID: GroupsManageMembers, Description: "Manage members of any scanlation group"},

		{ID: ContentAssignGroups, Description: "Claim or release works on behalf of any group"},
		{
			ID: ContentManageAll,
			Implies: []ID{
				WebtoonsCreate, WebtoonsEdit, WebtoonsDelete,
				NovelsCreate, NovelsEdit, NovelsDelete,
				ChaptersCreate, ChaptersEdit, ChaptersDelete,
				AuthorsCreate, AuthorsEdit, AuthorsDelete,
				ContentAssignGroups,
			},
			Description: "Manage all content regardless of group claims",
		},

		{ID: RolesView, Description: "View roles and their permissions"},
		{ID: RolesManage, DependsOn: []ID{RolesView}, Description: "Create, rename, delete and grant roles"},
		{ID: UsersAssignRole, DependsOn: []ID{RolesView}, Description: "Assign roles to users"},

		{ID: ActivityView, Description: "View the activity ledger"},
	}

	for _, perm := range perms {
		if err := register(perm); err != nil {
			panic(err)
		}
	}
	if err := ValidateDependencies(); err != nil {
		panic(err)
	}
}
