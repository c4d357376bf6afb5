package router

import (
	"natours/internal/domain"
	httpez "natours/internal/transport/http/ez"
)

var (
	reviewAuthors = domain.Roles(domain.RoleUser)
	reviewEditors = domain.Roles(domain.RoleUser, domain.RoleAdmin)
)

// reviewConfig 评价归属当前用户，所属团取路由参数 :id
func reviewConfig(e httpez.EZ, d Deps) httpez.CrudConfig[domain.Review] {
	rs := d.Reviews
	return httpez.CrudConfig[domain.Review]{
		EZ:   e,
		Repo: d.Stores.Reviews,
		Hooks: httpez.Hooks[domain.Review]{
			BeforeSave:  rs.BeforeSave,
			AfterCommit: rs.AfterWrite,
			AfterDelete: rs.AfterWrite,
		},
		Scope: httpez.Scope{
			OwnerField:   "UserID",
			ParentField:  "TourID",
			ParentParam:  "id",
			ParentColumn: "tour_id",
			OwnerBypass:  domain.Roles(domain.RoleAdmin),
		},
		Create: httpez.Guard{Roles: reviewAuthors},
		List:   httpez.Guard{Auth: true},
		Get:    httpez.Guard{Auth: true},
		Update: httpez.Guard{Roles: reviewEditors},
		Delete: httpez.Guard{Roles: reviewEditors},
	}
}

func mountReviews(e httpez.EZ, d Deps) {
	httpez.Crud(reviewConfig(e, d))
}

func mountTourReviews(e httpez.EZ, d Deps) {
	cfg := reviewConfig(e, d)
	cfg.Get, cfg.Update, cfg.Delete = httpez.Guard{Off: true}, httpez.Guard{Off: true}, httpez.Guard{Off: true}
	httpez.Crud(cfg)
}
