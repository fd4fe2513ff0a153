package test

import (
	"net/http"
	"testing"

	"github.com/rahmatfadhil/elearn/core/course"
	"github.com/rahmatfadhil/elearn/core/lecture"
	"github.com/rahmatfadhil/elearn/core/progress"
)

type progressTest struct {
	*TestEnv
}

type progressView struct {
	Course    course.Course              `json:"course"`
	Lectures  []lecture.Lecture          `json:"lectures"`
	Progress  []progress.LectureProgress `json:"progress"`
	Completed bool                       `json:"completed"`
}

func (pt *progressTest) showOK(t *testing.T, courseID string) progressView {
	t.Helper()

	var view progressView
	pt.do(t, http.MethodGet, "/courses/"+courseID+"/progress", nil, &view, http.StatusOK)
	return view
}

func (pt *progressTest) viewLectureOK(t *testing.T, courseID string, lectureID string) bool {
	t.Helper()

	var resp struct {
		Completed bool `json:"completed"`
	}
	pt.do(t, http.MethodPut, "/courses/"+courseID+"/progress/lectures/"+lectureID, nil, &resp, http.StatusOK)
	return resp.Completed
}

func TestProgress(t *testing.T) {
	env, err := NewTestEnv(t, "progress_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &progressTest{env}
	ct := &courseTest{env}
	bt := &purchaseTest{env}

	env.Signup(t, "Ana", "ana@example.com", "gopher123", "INSTRUCTOR")
	env.Signup(t, "Sam", "sam@example.com", "gopher123", "STUDENT")

	env.Login(t, "ana@example.com", "gopher123")
	crs := ct.createCourseOK(t, "Testing in Go", "programming")
	ct.setPriceOK(t, crs.ID, 10)
	l1 := ct.addLectureOK(t, crs.ID, "Unit tests", 0)
	l2 := ct.addLectureOK(t, crs.ID, "Table tests", 1)
	l3 := ct.addLectureOK(t, crs.ID, "Integration", 2)
	ct.publishOK(t, crs.ID)

	other := ct.createCourseOK(t, "Another Course", "programming")
	stray := ct.addLectureOK(t, other.ID, "Unrelated", 0)
	env.Logout(t)

	env.Login(t, "sam@example.com", "gopher123")

	env.Stripe.expectedPrice = 10
	sid := bt.stripeCheckoutOK(t, crs.ID)
	if code := env.DeliverWebhook(t, sid, 1000); code != http.StatusNoContent {
		t.Fatalf("webhook delivery failed: status code %d", code)
	}

	view := pt.showOK(t, crs.ID)
	if len(view.Lectures) != 3 || len(view.Progress) != 0 || view.Completed {
		t.Fatalf("fresh enrollment shows %d lectures, %d progress rows, completed=%v",
			len(view.Lectures), len(view.Progress), view.Completed)
	}

	// Bulk marks need an existing progress row.
	pt.do(t, http.MethodPatch, "/courses/"+crs.ID+"/progress/complete", nil, nil, http.StatusNotFound)

	// A lecture from another course never counts toward this one.
	pt.do(t, http.MethodPut, "/courses/"+crs.ID+"/progress/lectures/"+stray.ID, nil, nil, http.StatusNotFound)

	if pt.viewLectureOK(t, crs.ID, l1.ID) {
		t.Fatal("course completed after 1 of 3 lectures")
	}
	if pt.viewLectureOK(t, crs.ID, l1.ID) {
		t.Fatal("re-viewing a lecture flipped completion")
	}
	if pt.viewLectureOK(t, crs.ID, l2.ID) {
		t.Fatal("course completed after 2 of 3 lectures")
	}
	if !pt.viewLectureOK(t, crs.ID, l3.ID) {
		t.Fatal("course not completed after viewing every lecture")
	}

	view = pt.showOK(t, crs.ID)
	if len(view.Progress) != 3 || !view.Completed {
		t.Fatalf("full progress shows %d rows, completed=%v", len(view.Progress), view.Completed)
	}

	pt.do(t, http.MethodPatch, "/courses/"+crs.ID+"/progress/incomplete", nil, nil, http.StatusNoContent)
	if view = pt.showOK(t, crs.ID); view.Completed {
		t.Fatal("course still completed after reset")
	}

	pt.do(t, http.MethodPatch, "/courses/"+crs.ID+"/progress/complete", nil, nil, http.StatusNoContent)
	if view = pt.showOK(t, crs.ID); !view.Completed {
		t.Fatal("bulk completion did not mark the course")
	}
}
