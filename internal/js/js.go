package js

// MARK_STALE tags the current document so a later check can tell whether a
// navigation replaced it.
var MARK_STALE string = `
() => {
    window.__rodJobsStale = true;
    return true;
}
`

// IS_VISIBLE reports whether every selector matches an element that is rendered
// with a non-empty box.
var IS_VISIBLE string = `
(selectors) => {
    return selectors.every(function (selector) {
        var element = document.querySelector(selector);
        if (element === null) return false;
        if (window.getComputedStyle(element).visibility === "hidden") return false;
        return element.getClientRects().length > 0 && (element.offsetWidth > 0 || element.offsetHeight > 0);
    });
}
`

// FRESH_AND_VISIBLE is true once the stale tag from MARK_STALE is gone and the
// selector is visible.
var FRESH_AND_VISIBLE string = `
(selector) => {
    if (window.__rodJobsStale === true) return false;
    var element = document.querySelector(selector);
    if (element === null) return false;
    return element.getClientRects().length > 0 && (element.offsetWidth > 0 || element.offsetHeight > 0);
}
`

// URL_CHANGED_AND_VISIBLE is true once location.href moved away from prev and
// the selector is visible again.
var URL_CHANGED_AND_VISIBLE string = `
(prev, selector) => {
    if (window.location.href === prev) return false;
    var element = document.querySelector(selector);
    if (element === null) return false;
    return element.getClientRects().length > 0 && (element.offsetWidth > 0 || element.offsetHeight > 0);
}
`

var CURRENT_URL string = `
() => window.location.href
`
