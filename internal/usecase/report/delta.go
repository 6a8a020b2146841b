package report

import "chat-archive-bot/internal/domain"

// ComputeDelta сравнивает текущий снапшот с предыдущим.
//
// Без предыдущего снапшота все задачи считаются новыми, а дельта каждой
// категории равна её размеру. "Новые" задачи в in-progress и blocked — те,
// которых не было ни в одной из четырёх прежних категорий: свежесозданную
// задачу и задачу со сменившейся меткой по этим данным не различить.
func ComputeDelta(current domain.IssueSnapshot, previous *domain.IssueSnapshot) domain.SnapshotDelta {
	if previous == nil {
		return domain.SnapshotDelta{
			ReadyForTesting: domain.CategoryDelta{
				Count: current.ReadyCount(),
				Delta: current.ReadyCount(),
				New:   current.ReadyForTesting,
			},
			InProgress: domain.CategoryDelta{
				Count: current.InProgressCount(),
				Delta: current.InProgressCount(),
				New:   current.InProgress,
			},
			Blocked: domain.CategoryDelta{
				Count: current.BlockedCount(),
				Delta: current.BlockedCount(),
				New:   current.Blocked,
			},
			Backlog: domain.CategoryDelta{
				Count: current.BacklogCount(),
				Delta: current.BacklogCount(),
			},
		}
	}

	prevReady := numberSet(previous.ReadyForTesting)
	prevNonReady := numberSet(previous.InProgress)
	for n := range numberSet(previous.Blocked) {
		prevNonReady[n] = struct{}{}
	}
	for n := range numberSet(previous.Backlog) {
		prevNonReady[n] = struct{}{}
	}
	prevAll := make(map[int]struct{}, len(prevReady)+len(prevNonReady))
	for n := range prevReady {
		prevAll[n] = struct{}{}
	}
	for n := range prevNonReady {
		prevAll[n] = struct{}{}
	}

	var newReady, movedToReady []domain.IssueRef
	for _, ref := range current.ReadyForTesting {
		if _, ok := prevReady[ref.Number]; ok {
			continue
		}
		if _, ok := prevNonReady[ref.Number]; ok {
			movedToReady = append(movedToReady, ref)
		} else {
			newReady = append(newReady, ref)
		}
	}

	return domain.SnapshotDelta{
		ReadyForTesting: domain.CategoryDelta{
			Count: current.ReadyCount(),
			Delta: current.ReadyCount() - previous.ReadyCount(),
			New:   newReady,
			Moved: movedToReady,
		},
		InProgress: domain.CategoryDelta{
			Count: current.InProgressCount(),
			Delta: current.InProgressCount() - previous.InProgressCount(),
			New:   absentFrom(current.InProgress, prevAll),
		},
		Blocked: domain.CategoryDelta{
			Count: current.BlockedCount(),
			Delta: current.BlockedCount() - previous.BlockedCount(),
			New:   absentFrom(current.Blocked, prevAll),
		},
		Backlog: domain.CategoryDelta{
			Count: current.BacklogCount(),
			Delta: current.BacklogCount() - previous.BacklogCount(),
		},
	}
}

func numberSet(refs []domain.IssueRef) map[int]struct{} {
	set := make(map[int]struct{}, len(refs))
	for _, ref := range refs {
		set[ref.Number] = struct{}{}
	}
	return set
}

func absentFrom(refs []domain.IssueRef, seen map[int]struct{}) []domain.IssueRef {
	var out []domain.IssueRef
	for _, ref := range refs {
		if _, ok := seen[ref.Number]; !ok {
			out = append(out, ref)
		}
	}
	return out
}
