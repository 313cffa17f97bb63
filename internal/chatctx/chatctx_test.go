package chatctx

import "testing"

func TestCapabilities(t *testing.T) {
	cases := []struct {
		ctx  Context
		cap  Capability
		want bool
	}{
		// Обычный пользователь в личке.
		{PrivateUser, CapFeedback, true},
		{PrivateUser, CapSchedule, true},
		{PrivateUser, CapAdminManagement, false},
		{PrivateUser, CapMyRequests, false},

		// Админ в личке: и пользовательские, и служебные возможности.
		{PrivateAdmin, CapFeedback, true},
		{PrivateAdmin, CapAdminManagement, true},
		{PrivateAdmin, CapStatistics, true},
		{PrivateAdmin, CapReplyToRequest, true},
		{PrivateAdmin, CapMyRequests, false},

		// Преподаватель в личке: без подачи заявок и без настроек.
		{PrivateTeacher, CapFeedback, false},
		{PrivateTeacher, CapMyRequests, true},
		{PrivateTeacher, CapReplyToRequest, true},
		{PrivateTeacher, CapAdminManagement, false},

		// Группы: заявки не подаются нигде.
		{PublicGroup, CapFeedback, false},
		{PublicGroup, CapQuickSchedule, true},
		{PublicGroup, CapViewRequests, false},
		{AdminGroup, CapFeedback, false},
		{AdminGroup, CapViewRequests, true},
		{AdminGroup, CapReplyToRequest, true},
	}
	for _, c := range cases {
		if got := Allowed(c.ctx, c.cap); got != c.want {
			t.Errorf("%s / %s = %v, ожидали %v", c.ctx, c.cap, got, c.want)
		}
	}
}

func TestIsPrivate(t *testing.T) {
	for _, c := range []Context{PrivateUser, PrivateAdmin, PrivateTeacher} {
		if !c.IsPrivate() {
			t.Errorf("%s должен быть личным", c)
		}
	}
	for _, c := range []Context{PublicGroup, AdminGroup, TeacherGroup} {
		if c.IsPrivate() {
			t.Errorf("%s не должен быть личным", c)
		}
	}
}

func TestContextString(t *testing.T) {
	if PrivateAdmin.String() != "private_admin" || Context(99).String() != "unknown" {
		t.Fatal("строковые имена контекстов разъехались")
	}
}
