package test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/rahmatfadhil/elearn/core/course"
	"github.com/rahmatfadhil/elearn/core/lecture"
)

type courseTest struct {
	*TestEnv
}

func (ct *courseTest) createCourseOK(t *testing.T, title string, category string) course.Course {
	t.Helper()

	body := map[string]any{"title": title, "category": category}

	var crs course.Course
	ct.do(t, http.MethodPost, "/courses", body, &crs, http.StatusCreated)
	return crs
}

func (ct *courseTest) setPriceOK(t *testing.T, id string, price int) course.Course {
	t.Helper()

	body := map[string]any{"price": price}

	var crs course.Course
	ct.do(t, http.MethodPut, "/courses/"+id, body, &crs, http.StatusOK)
	return crs
}

func (ct *courseTest) publishOK(t *testing.T, id string) {
	t.Helper()
	ct.do(t, http.MethodPatch, "/courses/"+id+"/publish?publish=true", nil, nil, http.StatusOK)
}

func (ct *courseTest) addLectureOK(t *testing.T, courseID string, title string, index int) lecture.Lecture {
	t.Helper()

	body := map[string]any{"title": title, "index": index}

	var lec lecture.Lecture
	ct.do(t, http.MethodPost, "/courses/"+courseID+"/lectures", body, &lec, http.StatusCreated)
	return lec
}

func (ct *courseTest) listEnrolledOK(t *testing.T, want []course.Course) {
	t.Helper()

	var courses []course.Course
	ct.do(t, http.MethodGet, "/courses/enrolled", nil, &courses, http.StatusOK)

	if len(courses) != len(want) {
		t.Fatalf("enrolled in %d courses, want %d", len(courses), len(want))
	}

	got := make(map[string]bool, len(courses))
	for _, c := range courses {
		got[c.ID] = true
	}
	for _, c := range want {
		if !got[c.ID] {
			t.Fatalf("course %q missing from enrolled list", c.Title)
		}
	}
}

func TestCatalog(t *testing.T) {
	env, err := NewTestEnv(t, "catalog_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ct := &courseTest{env}

	env.Signup(t, "Ana", "ana@example.com", "gopher123", "INSTRUCTOR")
	env.Signup(t, "Bob", "bob@example.com", "gopher123", "INSTRUCTOR")

	env.Login(t, "ana@example.com", "gopher123")

	crs := ct.createCourseOK(t, "Intro to Go", "programming")
	if crs.Published {
		t.Fatal("new courses must start unpublished")
	}

	var listed []course.Course
	ct.do(t, http.MethodGet, "/courses", nil, &listed, http.StatusOK)
	if len(listed) != 0 {
		t.Fatalf("unpublished course leaked into the catalog: %d items", len(listed))
	}

	crs = ct.setPriceOK(t, crs.ID, 50)
	if crs.Price != 50 {
		t.Fatalf("price is %d, want 50", crs.Price)
	}

	ct.publishOK(t, crs.ID)

	ct.do(t, http.MethodGet, "/courses", nil, &listed, http.StatusOK)
	if len(listed) != 1 || listed[0].ID != crs.ID {
		t.Fatalf("published course missing from the catalog")
	}

	var owned []course.Course
	ct.do(t, http.MethodGet, "/courses/owned", nil, &owned, http.StatusOK)
	if len(owned) != 1 || owned[0].ID != crs.ID {
		t.Fatal("created course missing from the owned list")
	}

	env.Logout(t)

	// Ownership is per course, not per role.
	env.Login(t, "bob@example.com", "gopher123")
	ct.do(t, http.MethodPut, "/courses/"+crs.ID, map[string]any{"price": 1}, nil, http.StatusForbidden)
	ct.do(t, http.MethodDelete, "/courses/"+crs.ID, nil, nil, http.StatusForbidden)

	ct.do(t, http.MethodGet, "/courses/owned", nil, &owned, http.StatusOK)
	if len(owned) != 0 {
		t.Fatalf("bob owns %d courses, want 0", len(owned))
	}
}

func TestCourseDeleteCascade(t *testing.T) {
	env, err := NewTestEnv(t, "cascade_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ct := &courseTest{env}

	env.Signup(t, "Ana", "ana@example.com", "gopher123", "INSTRUCTOR")
	env.Login(t, "ana@example.com", "gopher123")

	crs := ct.createCourseOK(t, "Doomed Course", "programming")
	l1 := ct.addLectureOK(t, crs.ID, "First", 0)
	l2 := ct.addLectureOK(t, crs.ID, "Second", 1)

	for i, lec := range []lecture.Lecture{l1, l2} {
		body := map[string]any{
			"videoUrl": fmt.Sprintf("https://blobs.test/vid-%d", i),
			"videoId":  fmt.Sprintf("vid-%d", i),
		}
		ct.do(t, http.MethodPut, "/lectures/"+lec.ID, body, nil, http.StatusOK)
	}

	// A failing blob store must not block the deletion itself.
	env.Blob.failDelete = true

	ct.do(t, http.MethodDelete, "/courses/"+crs.ID, nil, nil, http.StatusNoContent)

	ct.do(t, http.MethodGet, "/courses/"+crs.ID, nil, nil, http.StatusNotFound)
	ct.do(t, http.MethodGet, "/lectures/"+l1.ID, nil, nil, http.StatusNotFound)
	ct.do(t, http.MethodGet, "/lectures/"+l2.ID, nil, nil, http.StatusNotFound)

	// Blob cleanup runs in the background.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if len(env.Blob.deletedKeys()) >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("blob deletion never attempted: %v", env.Blob.deletedKeys())
		}
		time.Sleep(50 * time.Millisecond)
	}
}
