package schema

import "github.com/declarr/declarr/field"

// Prowlarr v1 API section descriptors. Declared order is the apply order:
// tags are created before anything that references them and deleted last,
// indexers before the applications that sync them.
func init() {
	MustRegister(Section{
		Name:      "tags",
		Path:      "/api/v1/tag",
		Kind:      Collection,
		NameKey:   "label",
		Updatable: false,
		Fields:    nil, // a tag is its label; nothing else to manage
	})

	MustRegister(Section{
		Name:      "sync_profiles",
		Path:      "/api/v1/appprofile",
		Kind:      Collection,
		Updatable: true,
		Fields: []field.Spec{
			{Name: "enable_rss", RemoteKey: "enableRss", Kind: field.KindBool, Default: true},
			{Name: "enable_interactive_search", RemoteKey: "enableInteractiveSearch", Kind: field.KindBool, Default: true},
			{Name: "enable_automatic_search", RemoteKey: "enableAutomaticSearch", Kind: field.KindBool, Default: true},
			{Name: "minimum_seeders", RemoteKey: "minimumSeeders", Kind: field.KindInt, Default: 1, Required: true},
		},
	})

	MustRegister(Section{
		Name:      "indexer_proxies",
		Path:      "/api/v1/indexerproxy",
		Kind:      Collection,
		Provider:  true,
		TypeKey:   "implementation",
		Updatable: true,
		Fields: []field.Spec{
			{Name: "type", Kind: field.KindString, Required: true},
			{Name: "tags", Kind: field.KindStringList},
			{Name: "fields", Kind: field.KindFieldMap},
			{Name: "secret_fields", Kind: field.KindFieldMap, Secret: true},
		},
	})

	MustRegister(Section{
		Name:      "indexers",
		Path:      "/api/v1/indexer",
		Kind:      Collection,
		Provider:  true,
		TypeKey:   "definitionName",
		Updatable: true,
		Fields: []field.Spec{
			{Name: "type", Kind: field.KindString, Required: true},
			{Name: "enable", RemoteKey: "enable", Kind: field.KindBool, Default: false},
			{Name: "priority", RemoteKey: "priority", Kind: field.KindInt, Default: 25},
			{Name: "tags", Kind: field.KindStringList},
			{Name: "query_limit", RemoteKey: "baseSettings.queryLimit", Kind: field.KindInt, AllowsNull: true, InFields: true},
			{Name: "grab_limit", RemoteKey: "baseSettings.grabLimit", Kind: field.KindInt, AllowsNull: true, InFields: true},
			{Name: "fields", Kind: field.KindFieldMap},
			{Name: "secret_fields", Kind: field.KindFieldMap, Secret: true},
		},
	})

	MustRegister(Section{
		Name:      "download_clients",
		Path:      "/api/v1/downloadclient",
		Kind:      Collection,
		Provider:  true,
		TypeKey:   "implementation",
		Updatable: true,
		Fields: []field.Spec{
			{Name: "type", Kind: field.KindString, Required: true},
			{Name: "enable", RemoteKey: "enable", Kind: field.KindBool, Default: true},
			{Name: "priority", RemoteKey: "priority", Kind: field.KindInt, Default: 1},
			{Name: "tags", Kind: field.KindStringList},
			{Name: "fields", Kind: field.KindFieldMap},
			{Name: "secret_fields", Kind: field.KindFieldMap, Secret: true},
		},
	})

	MustRegister(Section{
		Name:      "applications",
		Path:      "/api/v1/applications",
		Kind:      Collection,
		Provider:  true,
		TypeKey:   "implementation",
		Updatable: true,
		Fields: []field.Spec{
			{Name: "type", Kind: field.KindString, Required: true},
			{Name: "sync_level", RemoteKey: "syncLevel", Kind: field.KindString, Default: "addOnly"},
			{Name: "tags", Kind: field.KindStringList},
			{Name: "fields", Kind: field.KindFieldMap},
			{Name: "secret_fields", Kind: field.KindFieldMap, Secret: true},
		},
	})

	MustRegister(Section{
		Name:      "notifications",
		Path:      "/api/v1/notification",
		Kind:      Collection,
		Provider:  true,
		TypeKey:   "implementation",
		Updatable: true,
		Fields: []field.Spec{
			{Name: "type", Kind: field.KindString, Required: true},
			{Name: "on_grab", RemoteKey: "onGrab", Kind: field.KindBool, Default: false},
			{Name: "on_health_issue", RemoteKey: "onHealthIssue", Kind: field.KindBool, Default: false},
			{Name: "on_health_restored", RemoteKey: "onHealthRestored", Kind: field.KindBool, Default: false},
			{Name: "include_health_warnings", RemoteKey: "includeHealthWarnings", Kind: field.KindBool, Default: false},
			{Name: "on_application_update", RemoteKey: "onApplicationUpdate", Kind: field.KindBool, Default: false},
			{Name: "tags", Kind: field.KindStringList},
			{Name: "fields", Kind: field.KindFieldMap},
			{Name: "secret_fields", Kind: field.KindFieldMap, Secret: true},
		},
	})

	MustRegister(Section{
		Name:      "ui",
		Path:      "/api/v1/config/ui",
		Kind:      Flat,
		Updatable: true,
		Fields: []field.Spec{
			{Name: "first_day_of_week", RemoteKey: "firstDayOfWeek", Kind: field.KindInt, Default: 0},
			{Name: "week_column_header", RemoteKey: "calendarWeekColumnHeader", Kind: field.KindString, Default: "ddd M/D"},
			{Name: "short_date_format", RemoteKey: "shortDateFormat", Kind: field.KindString, Default: "MMM D YYYY"},
			{Name: "long_date_format", RemoteKey: "longDateFormat", Kind: field.KindString, Default: "dddd, MMMM D YYYY"},
			{Name: "time_format", RemoteKey: "timeFormat", Kind: field.KindString, Default: "h(:mm)a"},
			{Name: "show_relative_dates", RemoteKey: "showRelativeDates", Kind: field.KindBool, Default: true},
			{Name: "enable_color_impaired_mode", RemoteKey: "enableColorImpairedMode", Kind: field.KindBool, Default: false},
			{Name: "theme", RemoteKey: "theme", Kind: field.KindString, Default: "auto"},
			{Name: "ui_language", RemoteKey: "uiLanguage", Kind: field.KindInt, Default: 1},
		},
	})
}
